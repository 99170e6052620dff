package models

import (
	"context"
	"errors"
)

var (
	// ErrNoData is returned by fetchers when the provider answered but had no bars.
	ErrNoData = errors.New("no data returned")
	// ErrSchemaMismatch is returned when a provider response does not have the expected shape.
	ErrSchemaMismatch = errors.New("unexpected response schema")
)

// BarFetcher is implemented by every market-data provider adapter.
type BarFetcher interface {
	Fetch(ctx context.Context, symbol, period, interval string) (*PriceSeries, error)
	Name() string
}
