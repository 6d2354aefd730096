package cleaner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"OHLCPipeline/internal/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func buildSeries(t *testing.T, closes, volumes []float64) *model.Series {
	t.Helper()
	require.Equal(t, len(closes), len(volumes))
	s := model.NewSeries()
	for i := range closes {
		s.Append(day0.AddDate(0, 0, i), "TEST", map[string]float64{
			model.ColOpen:   closes[i],
			model.ColHigh:   closes[i],
			model.ColLow:    closes[i],
			model.ColClose:  closes[i],
			model.ColVolume: volumes[i],
		})
	}
	return s
}

func col(t *testing.T, s *model.Series, name string) []float64 {
	t.Helper()
	v, ok := s.Column(name)
	require.True(t, ok, name)
	return v
}

func TestClean_EmptyIsNoop(t *testing.T) {
	s := model.NewSeries()
	assert.Same(t, s, New(nil).Clean(s))
}

func TestClean_FillsForwardThenBackward(t *testing.T) {
	nan := math.NaN()
	s := buildSeries(t, []float64{nan, 10, nan, 12, nan}, []float64{100, nan, 300, 400, 500})

	out := New(zap.NewNop()).Clean(s)

	assert.Equal(t, []float64{10, 10, 10, 12, 12}, col(t, out, model.ColClose))
	assert.Equal(t, []float64{100, 100, 300, 400, 500}, col(t, out, model.ColVolume))
	assert.True(t, math.IsNaN(col(t, s, model.ColClose)[0]), "input must not be modified")
}

func TestClean_ConstantCloseIsNotClipped(t *testing.T) {
	s := buildSeries(t, []float64{50, 50, 50, 50, 50}, []float64{1, 1, 1, 1, 1})

	out := New(nil).Clean(s)

	assert.Equal(t, []float64{50, 50, 50, 50, 50}, col(t, out, model.ColClose))
}

func TestClean_OutliersClippedToInputFence(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 12, 11, 500, 10, 11, 1, 12}
	volumes := []float64{100, 110, 120, 105, 95, 115, 100, 110, 1e7, 100, 105, 98}
	s := buildSeries(t, closes, volumes)

	cLo, cHi, ok := TukeyFence(closes)
	require.True(t, ok)
	vLo, vHi, ok := TukeyFence(volumes)
	require.True(t, ok)

	out := New(nil).Clean(s)

	for _, v := range col(t, out, model.ColClose) {
		assert.GreaterOrEqual(t, v, cLo)
		assert.LessOrEqual(t, v, cHi)
	}
	for _, v := range col(t, out, model.ColVolume) {
		assert.GreaterOrEqual(t, v, vLo)
		assert.LessOrEqual(t, v, vHi)
	}
	assert.Equal(t, cHi, col(t, out, model.ColClose)[7])
	assert.Equal(t, cLo, col(t, out, model.ColClose)[10])
	assert.Equal(t, 500.0, col(t, out, model.ColHigh)[7], "only close and volume are clipped")
}

func TestClean_Idempotent(t *testing.T) {
	nan := math.NaN()
	closes := []float64{nan, 20, 21, 22, nan, 23, 24, 90, 25, 26, 27, 2, 28, 29, 30}
	volumes := []float64{1000, 1100, nan, 1200, 1300, 1250, 50000, 1150, 1175, 1225, 1210, 1190, 1180, nan, 1205}
	s := buildSeries(t, closes, volumes)

	c := New(nil)
	once := c.Clean(s)
	twice := c.Clean(once)

	assert.Equal(t, once.Dates, twice.Dates)
	for _, name := range model.OHLCVColumns {
		assert.Equal(t, col(t, once, name), col(t, twice, name), name)
	}
}

func TestClean_SortsAndCollapsesDuplicateDates(t *testing.T) {
	s := model.NewSeries()
	vals := func(c float64) map[string]float64 {
		return map[string]float64{model.ColOpen: c, model.ColHigh: c, model.ColLow: c, model.ColClose: c, model.ColVolume: 1}
	}
	s.Append(day0.AddDate(0, 0, 2), "T", vals(3))
	s.Append(day0, "T", vals(1))
	s.Append(day0.AddDate(0, 0, 1), "T", vals(2))
	s.Append(day0, "T", vals(1.5))

	out := New(nil).Clean(s)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}, out.Dates)
	assert.Equal(t, []float64{1.5, 2, 3}, col(t, out, model.ColClose))
}

func TestClean_DropsRowsWithNoValues(t *testing.T) {
	nan := math.NaN()
	s := buildSeries(t, []float64{nan, nan}, []float64{nan, nan})

	out := New(nil).Clean(s)

	assert.True(t, out.Empty())
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, math.NaN()}
	assert.Equal(t, 1.75, Quantile(values, 0.25))
	assert.Equal(t, 2.5, Quantile(values, 0.5))
	assert.Equal(t, 3.25, Quantile(values, 0.75))
	assert.True(t, math.IsNaN(Quantile([]float64{math.NaN()}, 0.5)))
}

func TestFillForwardBackward(t *testing.T) {
	nan := math.NaN()
	values := []float64{nan, nan, 3, nan, 5, nan}
	FillForwardBackward(values)
	assert.Equal(t, []float64{3, 3, 3, 3, 5, 5}, values)
}
