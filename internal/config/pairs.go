package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alias1177/fxpulse/models"
)

//go:embed pairs.yaml
var defaultPairsYAML []byte

type pairsFile struct {
	Pairs []models.Pair `yaml:"pairs"`
}

// LoadPairs reads the pair table from path, or the built-in table when path is empty.
func LoadPairs(path string) (*models.PairSet, error) {
	data := defaultPairsYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pairs file: %w", err)
		}
	}
	return ParsePairs(data)
}

// ParsePairs decodes a YAML pair table
func ParsePairs(data []byte) (*models.PairSet, error) {
	var f pairsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pairs: %w", err)
	}
	if len(f.Pairs) == 0 {
		return nil, fmt.Errorf("parse pairs: no pairs defined")
	}
	return models.NewPairSet(f.Pairs)
}
