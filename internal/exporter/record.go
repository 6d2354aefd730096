package exporter

import (
	"math"

	"OHLCPipeline/internal/model"
)

// Record is the fixed-schema row used by the JSON and Parquet exporters.
// Columns outside this schema are not exported in those formats.
type Record struct {
	Date          string   `json:"date" parquet:"date"`
	Ticker        string   `json:"ticker" parquet:"ticker"`
	Open          *float64 `json:"open" parquet:"open,optional"`
	High          *float64 `json:"high" parquet:"high,optional"`
	Low           *float64 `json:"low" parquet:"low,optional"`
	Close         *float64 `json:"close" parquet:"close,optional"`
	Volume        *float64 `json:"volume" parquet:"volume,optional"`
	SMA10         *float64 `json:"SMA_10,omitempty" parquet:"SMA_10,optional"`
	SMA50         *float64 `json:"SMA_50,omitempty" parquet:"SMA_50,optional"`
	EMA10         *float64 `json:"EMA_10,omitempty" parquet:"EMA_10,optional"`
	EMA50         *float64 `json:"EMA_50,omitempty" parquet:"EMA_50,optional"`
	BBMiddle      *float64 `json:"BB_Middle,omitempty" parquet:"BB_Middle,optional"`
	BBStdDev      *float64 `json:"BB_StdDev,omitempty" parquet:"BB_StdDev,optional"`
	BBUpper       *float64 `json:"BB_Upper,omitempty" parquet:"BB_Upper,optional"`
	BBLower       *float64 `json:"BB_Lower,omitempty" parquet:"BB_Lower,optional"`
	RSI           *float64 `json:"RSI,omitempty" parquet:"RSI,optional"`
	DailyReturn   *float64 `json:"Daily_Return,omitempty" parquet:"Daily_Return,optional"`
	Volatility20D *float64 `json:"Volatility_20D,omitempty" parquet:"Volatility_20D,optional"`
	CloseOpenDiff *float64 `json:"Close_Open_Diff,omitempty" parquet:"Close_Open_Diff,optional"`
}

// Records converts s into fixed-schema rows. NaN becomes nil.
func Records(s *model.Series) []Record {
	out := make([]Record, s.Len())
	for i := range out {
		v := func(name string) *float64 {
			f := s.Value(name, i)
			if math.IsNaN(f) {
				return nil
			}
			return &f
		}
		out[i] = Record{
			Date:          dateStr(s, i),
			Ticker:        s.Tickers[i],
			Open:          v(model.ColOpen),
			High:          v(model.ColHigh),
			Low:           v(model.ColLow),
			Close:         v(model.ColClose),
			Volume:        v(model.ColVolume),
			SMA10:         v(model.ColSMA10),
			SMA50:         v(model.ColSMA50),
			EMA10:         v(model.ColEMA10),
			EMA50:         v(model.ColEMA50),
			BBMiddle:      v(model.ColBBMiddle),
			BBStdDev:      v(model.ColBBStdDev),
			BBUpper:       v(model.ColBBUpper),
			BBLower:       v(model.ColBBLower),
			RSI:           v(model.ColRSI),
			DailyReturn:   v(model.ColDailyReturn),
			Volatility20D: v(model.ColVolatility20D),
			CloseOpenDiff: v(model.ColCloseOpenDiff),
		}
	}
	return out
}
