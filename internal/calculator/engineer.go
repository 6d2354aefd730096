package calculator

import (
	"go.uber.org/zap"

	"OHLCPipeline/internal/model"
)

// Indicator windows. Each indicator is only added when the series holds at
// least as many observations as its window.
const (
	ShortWindow      = 10
	LongWindow       = 50
	BollingerWindow  = 20
	BollingerWidth   = 2.0
	RSIPeriod        = 14
	VolatilityWindow = 20
	TradingDays      = 252
)

// FeatureEngineer derives technical indicator columns from a cleaned series.
type FeatureEngineer struct {
	Logger *zap.Logger
}

// NewFeatureEngineer creates a FeatureEngineer.
func NewFeatureEngineer(logger *zap.Logger) *FeatureEngineer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeatureEngineer{Logger: logger.Named("transform")}
}

// Transform returns a copy of s with indicator columns added. Empty input, or
// input without a close column, is returned unchanged.
func (fe *FeatureEngineer) Transform(s *model.Series) *model.Series {
	if s.Empty() {
		return s
	}
	if !s.HasColumn(model.ColClose) {
		fe.Logger.Error("close column not found, skipping indicators", zap.String("ticker", s.Symbol()))
		return s
	}

	out := s.Clone()
	closes, _ := out.Column(model.ColClose)
	n := out.Len()
	set := func(name string, values []float64) {
		// Lengths always match the index here.
		_ = out.SetColumn(name, values)
	}

	if n >= ShortWindow {
		set(model.ColSMA10, RollingMean(closes, ShortWindow))
		set(model.ColEMA10, EMA(closes, ShortWindow))
	}
	if n >= LongWindow {
		set(model.ColSMA50, RollingMean(closes, LongWindow))
		set(model.ColEMA50, EMA(closes, LongWindow))
	}
	if n >= BollingerWindow {
		b := Bollinger(closes, BollingerWindow, BollingerWidth)
		set(model.ColBBMiddle, b.Middle)
		set(model.ColBBStdDev, b.StdDev)
		set(model.ColBBUpper, b.Upper)
		set(model.ColBBLower, b.Lower)
	}
	if n >= RSIPeriod {
		set(model.ColRSI, RSI(closes, RSIPeriod))
	}

	returns := PctChange(closes)
	set(model.ColDailyReturn, returns)
	if n >= VolatilityWindow {
		set(model.ColVolatility20D, AnnualizedVolatility(returns, VolatilityWindow, TradingDays))
	}

	if opens, ok := out.Column(model.ColOpen); ok {
		diff := make([]float64, n)
		for i := range diff {
			diff[i] = closes[i] - opens[i]
		}
		set(model.ColCloseOpenDiff, diff)
	}

	fe.Logger.Info("indicators computed",
		zap.String("ticker", s.Symbol()),
		zap.Int("rows", n),
		zap.Int("columns", len(out.Columns())))
	return out
}
