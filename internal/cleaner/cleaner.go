package cleaner

import (
	"math"

	"go.uber.org/zap"

	"OHLCPipeline/internal/model"
)

// IQRMultiplier is the Tukey fence width.
const IQRMultiplier = 1.5

// clipColumns are clipped independently against their own fences.
var clipColumns = []string{model.ColClose, model.ColVolume}

// Cleaner fills gaps and clips outliers in the OHLCV columns.
type Cleaner struct {
	Logger *zap.Logger
}

// New creates a Cleaner.
func New(logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{Logger: logger.Named("clean")}
}

// Clean returns a sorted, gap-filled, outlier-clipped copy of s.
// The input is never modified; an empty input is returned as is.
func (c *Cleaner) Clean(s *model.Series) *model.Series {
	if s.Empty() {
		return s
	}
	out := dedupeDates(s.SortByDate())
	if dropped := s.Len() - out.Len(); dropped > 0 {
		c.Logger.Warn("collapsed duplicate dates", zap.String("ticker", s.Symbol()), zap.Int("dropped", dropped))
	}

	for _, col := range model.OHLCVColumns {
		if values, ok := out.Column(col); ok {
			FillForwardBackward(values)
		}
	}

	before := out.Len()
	out = out.Filter(func(i int) bool {
		for _, col := range model.OHLCVColumns {
			if v, ok := out.Column(col); ok && !math.IsNaN(v[i]) {
				return true
			}
		}
		return false
	})
	if dropped := before - out.Len(); dropped > 0 {
		c.Logger.Warn("dropped empty rows", zap.String("ticker", s.Symbol()), zap.Int("dropped", dropped))
	}

	for _, col := range clipColumns {
		values, ok := out.Column(col)
		if !ok || len(values) == 0 {
			continue
		}
		lo, hi, ok := TukeyFence(values)
		if !ok {
			continue
		}
		if n := Clip(values, lo, hi); n > 0 {
			c.Logger.Info("clipped outliers",
				zap.String("ticker", s.Symbol()),
				zap.String("column", col),
				zap.Int("count", n),
				zap.Float64("lower", lo),
				zap.Float64("upper", hi))
		}
	}

	c.Logger.Info("cleaning complete", zap.String("ticker", s.Symbol()), zap.Int("rows", out.Len()))
	return out
}

// dedupeDates keeps the last observation of each date in a sorted series.
func dedupeDates(s *model.Series) *model.Series {
	return s.Filter(func(i int) bool {
		return i == s.Len()-1 || !s.Dates[i].Equal(s.Dates[i+1])
	})
}

// FillForwardBackward replaces NaN in place with the previous valid value,
// then fills any leading NaN with the next valid value.
func FillForwardBackward(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
		} else {
			last = v
		}
	}
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
		} else {
			next = values[i]
		}
	}
}

// TukeyFence returns [Q1 - 1.5 IQR, Q3 + 1.5 IQR]. ok is false when the IQR
// is zero or cannot be computed.
func TukeyFence(values []float64) (lower, upper float64, ok bool) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	if math.IsNaN(iqr) || iqr <= 0 {
		return 0, 0, false
	}
	return q1 - IQRMultiplier*iqr, q3 + IQRMultiplier*iqr, true
}

// Clip bounds values in place and returns how many were changed. NaN is left alone.
func Clip(values []float64, lower, upper float64) int {
	n := 0
	for i, v := range values {
		switch {
		case v < lower:
			values[i] = lower
			n++
		case v > upper:
			values[i] = upper
			n++
		}
	}
	return n
}
