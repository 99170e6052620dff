package analyze

import (
	"errors"

	"github.com/Alias1177/fxpulse/models"
)

var (
	// ErrDataUnavailable covers fetch failures and empty or partial provider responses.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrSchemaMismatch means a response lacked the fields the engine needs.
	ErrSchemaMismatch = models.ErrSchemaMismatch
	// ErrComputation covers non-finite indicator values and recovered panics.
	ErrComputation = errors.New("indicator computation failed")
)

// classify maps a fetch error onto the engine's taxonomy
func classify(err error) error {
	if errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrDataUnavailable) {
		return err
	}
	return errors.Join(ErrDataUnavailable, err)
}
