package analyze

import "github.com/Alias1177/fxpulse/models"

// Source tells whether a result was computed from market data or synthesized
type Source int

const (
	SourceReal Source = iota
	SourceDemo
)

func (s Source) String() string {
	if s == SourceDemo {
		return "demo"
	}
	return "real"
}

// Outcome is what Analyze returns: always a well-formed result, plus why it is demo data if it is.
type Outcome struct {
	Source Source
	Result models.AnalysisResult
	// Cause is set for demo outcomes only
	Cause error
	// Daily is the series the indicators were computed from; nil for demo outcomes
	Daily *models.PriceSeries
}

func (o Outcome) IsDemo() bool { return o.Source == SourceDemo }
