package model

// Base OHLCV columns.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColTicker = "ticker"
)

// Indicator columns written by the feature engineer.
const (
	ColSMA10         = "SMA_10"
	ColSMA50         = "SMA_50"
	ColEMA10         = "EMA_10"
	ColEMA50         = "EMA_50"
	ColBBMiddle      = "BB_Middle"
	ColBBStdDev      = "BB_StdDev"
	ColBBUpper       = "BB_Upper"
	ColBBLower       = "BB_Lower"
	ColRSI           = "RSI"
	ColDailyReturn   = "Daily_Return"
	ColVolatility20D = "Volatility_20D"
	ColCloseOpenDiff = "Close_Open_Diff"
)

// Partition columns derived by the store.
const (
	ColYear  = "year"
	ColMonth = "month"
)

// OHLCVColumns lists the price/volume columns every series must carry.
var OHLCVColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// IndicatorColumns lists every indicator column in storage order.
var IndicatorColumns = []string{
	ColSMA10, ColSMA50, ColEMA10, ColEMA50,
	ColBBMiddle, ColBBStdDev, ColBBUpper, ColBBLower,
	ColRSI, ColDailyReturn, ColVolatility20D, ColCloseOpenDiff,
}
