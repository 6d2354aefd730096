package calculator

import "math"

// PctChange returns the fractional change from the previous point.
// The first point, and any point following a zero or NaN, is NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 || values[i-1] == 0 || math.IsNaN(values[i-1]) || math.IsNaN(values[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// AnnualizedVolatility is the rolling sample std of returns scaled by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, window int, periodsPerYear float64) []float64 {
	out := RollingStd(returns, window)
	scale := math.Sqrt(periodsPerYear)
	for i := range out {
		out[i] *= scale
	}
	return out
}
