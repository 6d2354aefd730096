package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"OHLCPipeline/internal/model"
)

// Ingestor fetches raw rows through a Provider and standardises them into a Series.
type Ingestor struct {
	Provider    Provider
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
	// OnAttempt, when set, is called after every provider call.
	OnAttempt func(ok bool)
}

// NewIngestor creates a new Ingestor.
func NewIngestor(p Provider, maxAttempts int, retryDelay time.Duration, logger *zap.Logger) *Ingestor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		Provider:    p,
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
		Logger:      logger.Named("ingest"),
	}
}

// Ingest returns the standardised series for ticker over [start, end), or an
// empty series when the provider fails on every attempt, has no rows, or lacks
// a required column.
func (in *Ingestor) Ingest(ctx context.Context, ticker string, start, end time.Time) *model.Series {
	log := in.Logger.With(zap.String("ticker", ticker))
	log.Info("ingesting",
		zap.String("provider", in.Provider.Name()),
		zap.String("start", start.Format(time.DateOnly)),
		zap.String("end", end.Format(time.DateOnly)))

	raw, err := in.fetch(ctx, ticker, start, end)
	if err != nil {
		log.Error("all fetch attempts failed", zap.Int("attempts", in.MaxAttempts), zap.Error(err))
		return model.NewSeries()
	}

	s, nanCount, err := Standardize(ticker, raw, start, end)
	switch {
	case errors.Is(err, ErrNoData):
		log.Warn("no data found in the requested range")
		return model.NewSeries()
	case err != nil:
		log.Error("rejecting provider response", zap.Error(err), zap.Any("labels", raw.Labels))
		return model.NewSeries()
	}
	if nanCount > 0 {
		log.Warn("missing values detected during ingestion", zap.Int("nan_count", nanCount))
	}
	log.Info("ingested", zap.Int("rows", s.Len()))
	return s
}

// fetch calls the provider with a fixed delay between attempts.
func (in *Ingestor) fetch(ctx context.Context, ticker string, start, end time.Time) (*RawTable, error) {
	var lastErr error
	for attempt := 1; attempt <= in.MaxAttempts; attempt++ {
		if attempt > 1 {
			in.Logger.Info("retrying fetch", zap.String("ticker", ticker), zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(in.RetryDelay):
			}
		}
		raw, err := in.Provider.Fetch(ctx, ticker, start, end)
		if in.OnAttempt != nil {
			in.OnAttempt(err == nil)
		}
		if err == nil {
			return raw, nil
		}
		lastErr = err
		in.Logger.Warn("fetch attempt failed",
			zap.String("ticker", ticker),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", in.MaxAttempts),
			zap.Error(err))
	}
	return nil, fmt.Errorf("fetch %s: %w", ticker, lastErr)
}

// Standardize collapses and normalises column labels, keeps the OHLCV columns,
// coerces cells to float64 and stamps the ticker. It also returns the number of
// NaN cells found.
func Standardize(ticker string, raw *RawTable, start, end time.Time) (*model.Series, int, error) {
	if raw.Len() == 0 {
		return nil, 0, ErrNoData
	}

	positions := make(map[string]int, len(raw.Labels))
	for j, label := range raw.Labels {
		name := NormalizeLabel(label)
		if _, dup := positions[name]; !dup {
			positions[name] = j
		}
	}
	var missing []string
	for _, col := range model.OHLCVColumns {
		if _, ok := positions[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	s := model.NewSeries()
	nanCount := 0
	for i, ts := range raw.Index {
		if i >= len(raw.Rows) {
			break
		}
		date := TruncateDate(ts)
		if date.Before(TruncateDate(start)) || !date.Before(TruncateDate(end)) {
			continue
		}
		values := make(map[string]float64, len(model.OHLCVColumns))
		for _, col := range model.OHLCVColumns {
			var cell any
			if j := positions[col]; j < len(raw.Rows[i]) {
				cell = raw.Rows[i][j]
			}
			v := ToFloat(cell)
			if math.IsNaN(v) {
				nanCount++
			}
			values[col] = v
		}
		s.Append(date, ticker, values)
	}
	if s.Empty() {
		return nil, 0, ErrNoData
	}
	return s, nanCount, nil
}

// NormalizeLabel keeps the first level of a label path, lowercases it and
// replaces inner whitespace runs with underscores.
func NormalizeLabel(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(path[0])), "_")
}

// ToFloat coerces a provider cell to float64. Anything non-numeric or
// non-finite becomes NaN.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		f = parsed
	default:
		return math.NaN()
	}
	if math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
