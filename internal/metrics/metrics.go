package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ohlc_etl"

// Recorder collects per-run pipeline metrics in a private registry so batch
// runs can dump them for the node exporter textfile collector.
type Recorder struct {
	Registry *prometheus.Registry

	tickers       *prometheus.CounterVec
	rowsStored    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	fetchAttempts *prometheus.CounterVec
	lastRun       prometheus.Gauge
	lastRunDur    prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		tickers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickers_total",
			Help:      "Tickers processed, by outcome status.",
		}, []string{"status"}),
		rowsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_stored_total",
			Help:      "Rows appended to the store, by ticker.",
		}, []string{"ticker"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Provider fetch attempts, by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastRunDur: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	r.Registry.MustRegister(r.tickers, r.rowsStored, r.stageDuration, r.fetchAttempts, r.lastRun, r.lastRunDur)
	return r
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// TickerDone counts a finished ticker under its outcome status.
func (r *Recorder) TickerDone(status string) {
	if r == nil {
		return
	}
	r.tickers.WithLabelValues(status).Inc()
}

// RowsStored adds n persisted rows for ticker.
func (r *Recorder) RowsStored(ticker string, n int) {
	if r == nil {
		return
	}
	r.rowsStored.WithLabelValues(ticker).Add(float64(n))
}

// FetchAttempt counts one provider call.
func (r *Recorder) FetchAttempt(ok bool) {
	if r == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	r.fetchAttempts.WithLabelValues(result).Inc()
}

// RunFinished sets the last-run gauges.
func (r *Recorder) RunFinished(end time.Time, took time.Duration) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(end.Unix()))
	r.lastRunDur.Set(took.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format. The file is
// written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
