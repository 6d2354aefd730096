package calculator

import "math"

// Diff returns the change from the previous point; the first point is NaN.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// RSI computes the relative strength index from simple rolling means of gains
// and losses. Points where the average loss is zero are NaN.
func RSI(closes []float64, period int) []float64 {
	delta := Diff(closes)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		// NaN compares false, so the first delta counts as neither gain nor loss.
		if d > 0 {
			gains[i] = d
		}
		if d < 0 {
			losses[i] = -d
		}
	}
	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := make([]float64, len(closes))
	for i := range out {
		if avgLoss[i] == 0 || math.IsNaN(avgLoss[i]) {
			out[i] = math.NaN()
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}
