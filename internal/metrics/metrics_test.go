package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()
	r.TickerDone("succeeded")
	r.TickerDone("succeeded")
	r.TickerDone("failed")
	r.RowsStored("AAPL", 120)
	r.FetchAttempt(false)
	r.FetchAttempt(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tickers.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tickers.WithLabelValues("failed")))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.rowsStored.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchAttempts.WithLabelValues("error")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.TickerDone("failed")
		r.ObserveStage("clean", time.Second)
		r.RowsStored("X", 1)
		r.FetchAttempt(true)
		r.RunFinished(time.Now(), time.Second)
	})
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStage("ingest", 20*time.Millisecond)
	r.RunFinished(time.Unix(1700000000, 0), 3*time.Second)

	path := filepath.Join(t.TempDir(), "ohlc.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ohlc_etl_stage_duration_seconds_count{stage="ingest"} 1`)
	assert.Contains(t, string(data), "ohlc_etl_last_run_duration_seconds 3")
}
