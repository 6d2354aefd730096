package calculator

import "math"

// RollingStd returns the trailing sample standard deviation over window.
// At least two valid observations are needed, otherwise the point is NaN.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		sum, n := 0.0, 0
		start := windowStart(i, window)
		for j := start; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				sum += values[j]
				n++
			}
		}
		if n < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		ss := 0.0
		for j := start; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				d := values[j] - mean
				ss += d * d
			}
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

// Bands holds a Bollinger envelope.
type Bands struct {
	Middle []float64
	StdDev []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes the rolling mean plus/minus width standard deviations.
func Bollinger(closes []float64, window int, width float64) Bands {
	b := Bands{
		Middle: RollingMean(closes, window),
		StdDev: RollingStd(closes, window),
		Upper:  make([]float64, len(closes)),
		Lower:  make([]float64, len(closes)),
	}
	for i := range closes {
		b.Upper[i] = b.Middle[i] + width*b.StdDev[i]
		b.Lower[i] = b.Middle[i] - width*b.StdDev[i]
	}
	return b
}
