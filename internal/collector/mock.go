package collector

import (
	"context"
	"fmt"
	"time"
)

// MockProvider returns controllable fixed tables for development and testing.
type MockProvider struct {
	Tables map[string]*RawTable
	// FailFirst makes the first N calls for a ticker return Err.
	FailFirst map[string]int
	Err       error
	Calls     map[string]int
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Tables:    make(map[string]*RawTable),
		FailFirst: make(map[string]int),
		Calls:     make(map[string]int),
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Fetch(_ context.Context, ticker string, _, _ time.Time) (*RawTable, error) {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[ticker]++
	if m.Calls[ticker] <= m.FailFirst[ticker] {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, fmt.Errorf("mock transport failure for %s", ticker)
	}
	t, ok := m.Tables[ticker]
	if !ok {
		return &RawTable{}, nil
	}
	return t, nil
}

// MockTable builds a flat OHLCV table with one row per calendar day from start,
// deriving open/high/low from the given closes.
func MockTable(start time.Time, closes []float64, volume float64) *RawTable {
	t := &RawTable{
		Labels: [][]string{{"Open"}, {"High"}, {"Low"}, {"Close"}, {"Volume"}},
	}
	for i, c := range closes {
		t.Index = append(t.Index, start.AddDate(0, 0, i))
		t.Rows = append(t.Rows, []any{c * 0.999, c * 1.005, c * 0.995, c, volume})
	}
	return t
}
