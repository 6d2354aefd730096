package collector

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoData is returned when the provider yields no rows for the request.
	ErrNoData = errors.New("no data returned")
	// ErrMissingColumns is returned when a required OHLCV column is absent after normalisation.
	ErrMissingColumns = errors.New("missing required columns")
)

// RawTable is the provider's tabular answer before any normalisation.
// Labels holds one label path per column: a single element for flat headers,
// several for hierarchical ones (e.g. ["Close", "AAPL"]).
type RawTable struct {
	Index  []time.Time
	Labels [][]string
	Rows   [][]any
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Provider fetches daily OHLCV rows for one ticker over [start, end).
type Provider interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time) (*RawTable, error)
	Name() string
}
