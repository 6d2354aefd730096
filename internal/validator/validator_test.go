package validator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OHLCPipeline/internal/model"
)

func validSeries(n int) *model.Series {
	s := model.NewSeries()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		s.Append(start.AddDate(0, 0, i), "JPM", map[string]float64{
			model.ColOpen: c, model.ColHigh: c + 1, model.ColLow: c - 1, model.ColClose: c, model.ColVolume: 1e6,
		})
	}
	return s
}

func checkName(t *testing.T, err error) string {
	t.Helper()
	var ce *CheckError
	require.True(t, errors.As(err, &ce), "expected *CheckError, got %v", err)
	return ce.Check
}

func TestValidate_Passes(t *testing.T) {
	v := New(nil)
	s := validSeries(20)
	assert.True(t, v.Validate(s))
	assert.NoError(t, v.Check(s))
}

func TestCheck_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *model.Series) *model.Series
		check  string
	}{
		{"empty", func(*model.Series) *model.Series { return model.NewSeries() }, CheckNonEmpty},
		{"nil", func(*model.Series) *model.Series { return nil }, CheckNonEmpty},
		{"missing volume", func(s *model.Series) *model.Series { s.DropColumn(model.ColVolume); return s }, CheckColumns},
		{"missing ticker", func(s *model.Series) *model.Series { s.Tickers = nil; return s }, CheckColumns},
		{"infinite high", func(s *model.Series) *model.Series {
			h, _ := s.Column(model.ColHigh)
			h[3] = math.Inf(1)
			return s
		}, CheckNumeric},
		{"duplicate date", func(s *model.Series) *model.Series { s.Dates[5] = s.Dates[4]; return s }, CheckDateIndex},
		{"zero date", func(s *model.Series) *model.Series { s.Dates[0] = time.Time{}; return s }, CheckDateIndex},
		{"zero close", func(s *model.Series) *model.Series {
			c, _ := s.Column(model.ColClose)
			c[7] = 0
			return s
		}, CheckPositiveClose},
		{"nan close", func(s *model.Series) *model.Series {
			c, _ := s.Column(model.ColClose)
			c[7] = math.NaN()
			return s
		}, CheckPositiveClose},
		{"too many nan volumes", func(s *model.Series) *model.Series {
			v, _ := s.Column(model.ColVolume)
			v[1], v[2] = math.NaN(), math.NaN()
			return s
		}, CheckMissingFraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.mutate(validSeries(20))
			v := New(nil)
			assert.Equal(t, tt.check, checkName(t, v.Check(s)))
			assert.False(t, v.Validate(s))
		})
	}
}

func TestCheck_VolumeNaNBelowThreshold(t *testing.T) {
	s := validSeries(20)
	v, _ := s.Column(model.ColVolume)
	v[3] = math.NaN()

	assert.NoError(t, New(nil).Check(s))
}

func TestCheck_DoesNotMutate(t *testing.T) {
	s := validSeries(12)
	before := s.Clone()

	_ = New(nil).Check(s)

	assert.Equal(t, before.Dates, s.Dates)
	assert.Equal(t, before.Columns(), s.Columns())
}
