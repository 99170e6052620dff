package models

import (
	"fmt"
	"strings"
)

// Plausibility defaults for daily ATR in pips
const (
	DefaultPipFactor   = 10000.0
	DefaultATRMin      = 20.0
	DefaultATRMax      = 300.0
	DefaultATRFallback = 85.0
	DefaultDemoPrice   = 1.0
)

// Pair is a supported currency pair with its provider symbols and empirical constants.
type Pair struct {
	Name             string  `yaml:"name"`    // GBPUSD
	Display          string  `yaml:"display"` // GBP/USD
	Button           string  `yaml:"button"`  // reply keyboard caption
	YahooSymbol      string  `yaml:"yahoo_symbol"`
	TwelveDataSymbol string  `yaml:"twelvedata_symbol"`
	DemoBasePrice    float64 `yaml:"demo_base_price"`
	PipFactor        float64 `yaml:"pip_factor"`
	ATRMin           float64 `yaml:"atr_min"`
	ATRMax           float64 `yaml:"atr_max"`
	ATRFallback      float64 `yaml:"atr_fallback"`
}

// WithDefaults fills zero-valued constants
func (p Pair) WithDefaults() Pair {
	if p.Display == "" && len(p.Name) == 6 {
		p.Display = p.Name[:3] + "/" + p.Name[3:]
	}
	if p.YahooSymbol == "" {
		p.YahooSymbol = p.Name + "=X"
	}
	if p.TwelveDataSymbol == "" {
		p.TwelveDataSymbol = p.Display
	}
	if p.DemoBasePrice == 0 {
		p.DemoBasePrice = DefaultDemoPrice
	}
	if p.PipFactor == 0 {
		p.PipFactor = DefaultPipFactor
	}
	if p.ATRMin == 0 {
		p.ATRMin = DefaultATRMin
	}
	if p.ATRMax == 0 {
		p.ATRMax = DefaultATRMax
	}
	if p.ATRFallback == 0 {
		p.ATRFallback = DefaultATRFallback
	}
	return p
}

// NormalizePairName upper-cases and strips slashes and spaces: "eur/usd" -> "EURUSD".
func NormalizePairName(text string) string {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// PairSet is the ordered, static set of supported pairs.
type PairSet struct {
	ordered []Pair
	byName  map[string]Pair
}

// NewPairSet validates and indexes pairs, keeping their order.
func NewPairSet(pairs []Pair) (*PairSet, error) {
	ps := &PairSet{byName: make(map[string]Pair, len(pairs))}
	for _, p := range pairs {
		p.Name = NormalizePairName(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("pair without name")
		}
		if _, dup := ps.byName[p.Name]; dup {
			return nil, fmt.Errorf("pair %s listed twice", p.Name)
		}
		p = p.WithDefaults()
		if p.ATRMin >= p.ATRMax {
			return nil, fmt.Errorf("pair %s: atr_min %.1f must be below atr_max %.1f", p.Name, p.ATRMin, p.ATRMax)
		}
		ps.ordered = append(ps.ordered, p)
		ps.byName[p.Name] = p
	}
	return ps, nil
}

// All returns pairs in configured order
func (ps *PairSet) All() []Pair {
	out := make([]Pair, len(ps.ordered))
	copy(out, ps.ordered)
	return out
}

// Names returns pair identifiers in configured order
func (ps *PairSet) Names() []string {
	names := make([]string, len(ps.ordered))
	for i, p := range ps.ordered {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a supported pair by any spelling of its name.
func (ps *PairSet) Lookup(name string) (Pair, bool) {
	p, ok := ps.byName[NormalizePairName(name)]
	return p, ok
}

// ByButton finds the pair whose keyboard caption matches text exactly.
func (ps *PairSet) ByButton(text string) (Pair, bool) {
	for _, p := range ps.ordered {
		if p.Button != "" && p.Button == text {
			return p, true
		}
	}
	return Pair{}, false
}

// Resolve returns the supported pair, or a pair with default constants for unknown names.
func (ps *PairSet) Resolve(name string) Pair {
	if p, ok := ps.Lookup(name); ok {
		return p
	}
	return Pair{Name: NormalizePairName(name)}.WithDefaults()
}

// Symbol returns the ticker a given provider expects for this pair.
func (p Pair) Symbol(provider string) string {
	if provider == "twelvedata" {
		return p.TwelveDataSymbol
	}
	return p.YahooSymbol
}
