package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is a column-oriented frame of daily observations indexed by date.
// Missing values are stored as NaN.
type Series struct {
	Dates   []time.Time
	Tickers []string

	cols  map[string][]float64
	order []string
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{cols: make(map[string][]float64)}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Empty reports whether the series holds no observations.
func (s *Series) Empty() bool { return s.Len() == 0 }

// Symbol returns the ticker of the first observation.
func (s *Series) Symbol() string {
	if s == nil || len(s.Tickers) == 0 {
		return ""
	}
	return s.Tickers[0]
}

// HasColumn reports whether a numeric column exists.
func (s *Series) HasColumn(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.cols[name]
	return ok
}

// Column returns the values of a numeric column. The slice is shared with the series.
func (s *Series) Column(name string) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.cols[name]
	return v, ok
}

// Columns returns numeric column names in insertion order.
func (s *Series) Columns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetColumn adds or replaces a numeric column. Length must match the index.
func (s *Series) SetColumn(name string, values []float64) error {
	if len(values) != len(s.Dates) {
		return fmt.Errorf("column %s: got %d values for %d rows", name, len(values), len(s.Dates))
	}
	if s.cols == nil {
		s.cols = make(map[string][]float64)
	}
	if _, ok := s.cols[name]; !ok {
		s.order = append(s.order, name)
	}
	s.cols[name] = values
	return nil
}

// DropColumn removes a numeric column if present.
func (s *Series) DropColumn(name string) {
	if _, ok := s.cols[name]; !ok {
		return
	}
	delete(s.cols, name)
	for i, c := range s.order {
		if c == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Append adds one observation. Columns not present in values are filled with NaN.
func (s *Series) Append(date time.Time, ticker string, values map[string]float64) {
	if s.cols == nil {
		s.cols = make(map[string][]float64)
	}
	n := len(s.Dates)
	var added []string
	for name := range values {
		if _, ok := s.cols[name]; !ok {
			added = append(added, name)
		}
	}
	sortColumns(added)
	for _, name := range added {
		s.cols[name] = NaNs(n)
		s.order = append(s.order, name)
	}
	s.Dates = append(s.Dates, date)
	s.Tickers = append(s.Tickers, ticker)
	for _, name := range s.order {
		v, ok := values[name]
		if !ok {
			v = math.NaN()
		}
		s.cols[name] = append(s.cols[name], v)
	}
}

// Value returns a single cell, NaN when the column is absent.
func (s *Series) Value(name string, row int) float64 {
	col, ok := s.Column(name)
	if !ok || row < 0 || row >= len(col) {
		return math.NaN()
	}
	return col[row]
}

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	if s == nil {
		return NewSeries()
	}
	out := &Series{
		Dates:   append([]time.Time(nil), s.Dates...),
		Tickers: append([]string(nil), s.Tickers...),
		cols:    make(map[string][]float64, len(s.cols)),
		order:   append([]string(nil), s.order...),
	}
	for k, v := range s.cols {
		out.cols[k] = append([]float64(nil), v...)
	}
	return out
}

// Filter returns a new series holding only the rows for which keep returns true.
func (s *Series) Filter(keep func(i int) bool) *Series {
	idx := make([]int, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return s.take(idx)
}

// SortByDate returns a copy ordered by ascending date. The sort is stable.
func (s *Series) SortByDate() *Series {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.Dates[idx[a]].Before(s.Dates[idx[b]]) })
	return s.take(idx)
}

// Head returns the first n rows.
func (s *Series) Head(n int) *Series {
	if n > s.Len() {
		n = s.Len()
	}
	return s.Filter(func(i int) bool { return i < n })
}

// Tail returns the last n rows.
func (s *Series) Tail(n int) *Series {
	start := s.Len() - n
	return s.Filter(func(i int) bool { return i >= start })
}

func (s *Series) take(idx []int) *Series {
	out := &Series{
		Dates:   make([]time.Time, len(idx)),
		Tickers: make([]string, len(idx)),
		cols:    make(map[string][]float64, len(s.cols)),
		order:   append([]string(nil), s.order...),
	}
	for j, i := range idx {
		out.Dates[j] = s.Dates[i]
		if i < len(s.Tickers) {
			out.Tickers[j] = s.Tickers[i]
		}
	}
	for name, col := range s.cols {
		vals := make([]float64, len(idx))
		for j, i := range idx {
			vals[j] = col[i]
		}
		out.cols[name] = vals
	}
	return out
}

// sortColumns orders names as OHLCV first, then indicators, then the rest
// alphabetically.
func sortColumns(names []string) {
	sort.Slice(names, func(a, b int) bool {
		ra, rb := columnRank(names[a]), columnRank(names[b])
		if ra != rb {
			return ra < rb
		}
		return names[a] < names[b]
	})
}

func columnRank(name string) int {
	for i, c := range OHLCVColumns {
		if c == name {
			return i
		}
	}
	for i, c := range IndicatorColumns {
		if c == name {
			return len(OHLCVColumns) + i
		}
	}
	return len(OHLCVColumns) + len(IndicatorColumns)
}

// CountNaN returns the number of NaN entries in a column.
func CountNaN(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
