package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"OHLCPipeline/internal/collector"
	"OHLCPipeline/internal/exporter"
	"OHLCPipeline/internal/metrics"
	"OHLCPipeline/internal/model"
	"OHLCPipeline/internal/recorder"
)

var (
	runStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runEnd   = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

func closes(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i)
		if i%5 == 4 {
			out[i] -= 1.5
		}
	}
	return out
}

func newPipeline(t *testing.T, mp *collector.MockProvider, store recorder.Store, tickers ...string) *Pipeline {
	t.Helper()
	in := collector.NewIngestor(mp, 2, time.Millisecond, zap.NewNop())
	return New(Options{
		Tickers: tickers,
		Start:   runStart,
		End:     runEnd,
		Table:   "ohlc_processed_data",
	}, in, store, zap.NewNop())
}

func sqliteStore(t *testing.T) *recorder.SQLiteStore {
	t.Helper()
	return recorder.NewSQLiteStore(filepath.Join(t.TempDir(), "ohlc.db"), nil)
}

func outcome(t *testing.T, sum *Summary, ticker string) Outcome {
	t.Helper()
	for _, o := range sum.Outcomes {
		if o.Ticker == ticker {
			return o
		}
	}
	t.Fatalf("no outcome for %s", ticker)
	return Outcome{}
}

func TestRun_TwoTickersQueryByTicker(t *testing.T) {
	mp := collector.NewMockProvider()
	mp.Tables["AAPL"] = collector.MockTable(runStart, closes(60, 100), 1e6)
	mp.Tables["MSFT"] = collector.MockTable(runStart, closes(30, 300), 2e6)
	store := sqliteStore(t)
	p := newPipeline(t, mp, store, "AAPL", "MSFT")

	sum := p.Run(context.Background())

	assert.Equal(t, []string{"AAPL", "MSFT"}, sum.Succeeded())
	assert.Empty(t, sum.Failed())
	assert.NotEmpty(t, sum.RunID)

	got, err := store.Query(context.Background(), p.Table, recorder.Filter{Ticker: "MSFT"})
	require.NoError(t, err)
	require.Equal(t, 30, got.Len())
	for i := range got.Tickers {
		assert.Equal(t, "MSFT", got.Tickers[i])
		if i > 0 {
			assert.True(t, got.Dates[i].After(got.Dates[i-1]))
		}
	}
	c, _ := got.Column(model.ColClose)
	assert.InDelta(t, 300.0, c[0], 1e-9)
}

func TestRun_EmptyProviderMarksFailedWithoutWrite(t *testing.T) {
	mp := collector.NewMockProvider()
	store := sqliteStore(t)

	sum := newPipeline(t, mp, store, "NODATA").Run(context.Background())

	o := outcome(t, sum, "NODATA")
	assert.Equal(t, StatusSkipped, o.Status)
	assert.Equal(t, StageIngest, o.Stage)
	assert.Equal(t, []string{"NODATA"}, sum.Failed())

	_, err := store.Query(context.Background(), "ohlc_processed_data", recorder.Filter{})
	assert.Error(t, err, "table must not exist")
}

func TestRun_ValidationFailureIsNeverPersisted(t *testing.T) {
	mp := collector.NewMockProvider()
	// A negative close survives cleaning but fails the positive close check.
	bad := closes(30, 10)
	bad[3] = -5
	mp.Tables["BAD"] = collector.MockTable(runStart, bad, 1e6)
	mp.Tables["GOOD"] = collector.MockTable(runStart, closes(30, 50), 1e6)
	store := sqliteStore(t)

	sum := newPipeline(t, mp, store, "BAD", "GOOD").Run(context.Background())

	o := outcome(t, sum, "BAD")
	assert.Equal(t, StatusSkipped, o.Status)
	assert.Equal(t, StageValidate, o.Stage)
	assert.Contains(t, o.Reason, "close")

	got, err := store.Query(context.Background(), "ohlc_processed_data", recorder.Filter{Ticker: "BAD"})
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, []string{"GOOD"}, sum.Succeeded())
}

func TestRun_TransientFailureRecovers(t *testing.T) {
	mp := collector.NewMockProvider()
	mp.Tables["KO"] = collector.MockTable(runStart, closes(25, 60), 1e6)
	mp.FailFirst["KO"] = 1

	sum := newPipeline(t, mp, sqliteStore(t), "KO").Run(context.Background())

	assert.Equal(t, []string{"KO"}, sum.Succeeded())
	assert.Equal(t, 2, mp.Calls["KO"])
}

type panicStore struct{ *recorder.NoopStore }

func (panicStore) Persist(context.Context, *model.Series, string) error { panic("disk on fire") }

func TestRun_PanicIsContainedToTicker(t *testing.T) {
	mp := collector.NewMockProvider()
	mp.Tables["A"] = collector.MockTable(runStart, closes(20, 10), 1e6)
	mp.Tables["B"] = collector.MockTable(runStart, closes(20, 20), 1e6)

	sum := newPipeline(t, mp, panicStore{&recorder.NoopStore{}}, "A", "B").Run(context.Background())

	require.Len(t, sum.Outcomes, 2)
	for _, o := range sum.Outcomes {
		assert.Equal(t, StatusFailed, o.Status)
		assert.Equal(t, StageStore, o.Stage)
		assert.Contains(t, o.Reason, "disk on fire")
	}
}

type failingStore struct{ *recorder.NoopStore }

func (failingStore) Persist(context.Context, *model.Series, string) error {
	return errors.New("database is locked")
}

func TestRun_PersistErrorIsAWarning(t *testing.T) {
	mp := collector.NewMockProvider()
	mp.Tables["PG"] = collector.MockTable(runStart, closes(20, 10), 1e6)

	sum := newPipeline(t, mp, failingStore{&recorder.NoopStore{}}, "PG").Run(context.Background())

	o := outcome(t, sum, "PG")
	assert.Equal(t, StatusSucceeded, o.Status)
	require.Len(t, o.Warnings, 1)
	assert.Contains(t, o.Warnings[0], "database is locked")
}

func TestRun_FreshRunResetsStore(t *testing.T) {
	ctx := context.Background()
	mp := collector.NewMockProvider()
	mp.Tables["V"] = collector.MockTable(runStart, closes(15, 200), 1e6)
	store := sqliteStore(t)

	p := newPipeline(t, mp, store, "V")
	p.Run(ctx)
	p.Run(ctx)
	got, err := store.Query(ctx, p.Table, recorder.Filter{Ticker: "V"})
	require.NoError(t, err)
	assert.Equal(t, 30, got.Len(), "appends accumulate without a fresh run")

	p.FreshRun = true
	p.Run(ctx)
	got, err = store.Query(ctx, p.Table, recorder.Filter{Ticker: "V"})
	require.NoError(t, err)
	assert.Equal(t, 15, got.Len())
}

func TestRun_SampleReportExportAndMetrics(t *testing.T) {
	dir := t.TempDir()
	mp := collector.NewMockProvider()
	mp.Tables["NVDA"] = collector.MockTable(runStart, closes(55, 400), 1e6)
	p := newPipeline(t, mp, sqliteStore(t), "MISSING", "NVDA")
	p.SampleRows = 5
	p.ReportPath = filepath.Join(dir, ReportName)
	p.Exporter = exporter.New("csv")
	p.ExportDir = filepath.Join(dir, "export")
	p.Metrics = metrics.New()

	sum := p.Run(context.Background())

	assert.Equal(t, "NVDA", sum.SampleTicker)
	require.Equal(t, 55, sum.Sample.Len())
	rsi, ok := sum.Sample.Column(model.ColRSI)
	require.True(t, ok)
	assert.False(t, math.IsNaN(rsi[54]))

	o := outcome(t, sum, "NVDA")
	assert.Equal(t, filepath.Join(dir, "export", "NVDA.csv"), o.ExportPath)

	rep, err := ReadReport(p.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, rep.RunID)
	require.Len(t, rep.Outcomes, 2)
	assert.Equal(t, StatusSkipped, rep.Outcomes[0].Status)
}

func TestRun_CancelledContextFailsRemaining(t *testing.T) {
	mp := collector.NewMockProvider()
	mp.Tables["A"] = collector.MockTable(runStart, closes(20, 10), 1e6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := newPipeline(t, mp, sqliteStore(t), "A").Run(ctx)

	assert.Equal(t, StatusFailed, outcome(t, sum, "A").Status)
	assert.Zero(t, mp.Calls["A"])
}

func TestReadReport_Missing(t *testing.T) {
	sum, err := ReadReport(filepath.Join(t.TempDir(), ReportName))
	assert.NoError(t, err)
	assert.Nil(t, sum)
}
