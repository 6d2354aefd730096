package calculator

import "math"

// RollingMean returns the trailing mean over window, using whatever history is
// available for the first points. NaN inputs are skipped; a window with no
// valid value yields NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		sum, n := 0.0, 0
		for j := windowStart(i, window); j <= i; j++ {
			if !math.IsNaN(values[j]) {
				sum += values[j]
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// EMA returns the recursive exponential moving average with alpha = 2/(span+1),
// seeded by the first valid value. NaN inputs carry the previous average forward.
func EMA(values []float64, span int) []float64 {
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

func windowStart(i, window int) int {
	if start := i - window + 1; start > 0 {
		return start
	}
	return 0
}
