package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"OHLCPipeline/internal/collector"
	"OHLCPipeline/internal/config"
	"OHLCPipeline/internal/exporter"
	"OHLCPipeline/internal/logger"
	"OHLCPipeline/internal/metrics"
	"OHLCPipeline/internal/model"
	"OHLCPipeline/internal/notifier"
	"OHLCPipeline/internal/pipeline"
	"OHLCPipeline/internal/recorder"
	"OHLCPipeline/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the YAML config file")
	strict := flag.Bool("strict", false, "exit with status 1 when no ticker succeeds")
	once := flag.Bool("once", false, "run once even if a schedule is configured")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 2
	}
	// level and format already passed Validate.
	log := logger.Must(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider := newProvider(cfg)
	log.Info("data source", zap.String("provider", provider.Name()))

	var rec *metrics.Recorder
	if cfg.Metrics.TextfilePath != "" {
		rec = metrics.New()
	}

	in := collector.NewIngestor(provider, cfg.Retry.MaxAttempts, cfg.Retry.Delay, log)
	if rec != nil {
		in.OnAttempt = rec.FetchAttempt
	}

	var (
		store      recorder.Store = &recorder.NoopStore{}
		reportPath string
	)
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Error("create database dir", zap.Error(err))
			return 2
		}
		store = recorder.NewSQLiteStore(cfg.Database.SQLitePath, log)
		reportPath = filepath.Join(filepath.Dir(cfg.Database.SQLitePath), pipeline.ReportName)
	}

	p := pipeline.New(pipeline.Options{
		Tickers:    cfg.Tickers,
		Table:      cfg.Database.Table,
		FreshRun:   cfg.Database.FreshRun,
		SampleRows: cfg.Sample.Rows,
		ExportDir:  cfg.Export.Dir,
		ReportPath: reportPath,
	}, in, store, log)
	p.Metrics = rec
	if cfg.Export.Format != "" {
		p.Exporter = exporter.New(cfg.Export.Format)
	}

	var (
		tn     *notifier.TelegramNotifier
		sender scheduler.Sender
	)
	if cfg.NotifyEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, &datedRunner{cfg: cfg, p: p, log: log}, sender, log)
	sched.Metrics = rec
	sched.MetricsPath = cfg.Metrics.TextfilePath

	if cfg.Schedule.Cron == "" || *once {
		sum := sched.RunNow()
		printSummary(os.Stdout, sum, cfg.Sample.Rows)
		if *strict && len(sum.Succeeded()) == 0 {
			return 1
		}
		return 0
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Error("register schedule", zap.Error(err))
		return 2
	}
	if reportPath != "" {
		if prev, err := pipeline.ReadReport(reportPath); err != nil {
			log.Warn("could not read previous run report", zap.Error(err))
		} else if prev != nil {
			sched.Restore(prev)
		}
	}
	sched.Start()
	defer sched.Stop()
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	log.Info("waiting for scheduled runs, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.Cron))
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return 0
}

// datedRunner resolves the configured date range at the start of every run so
// an open end date keeps tracking today in scheduled mode.
type datedRunner struct {
	cfg *config.Config
	p   *pipeline.Pipeline
	log *zap.Logger
}

func (r *datedRunner) Run(ctx context.Context) *pipeline.Summary {
	start, end, err := r.cfg.Range(time.Now())
	if err != nil {
		r.log.Error("resolve date range, keeping previous", zap.Error(err))
	} else {
		r.p.Start, r.p.End = start, end
	}
	return r.p.Run(ctx)
}

func newProvider(cfg *config.Config) collector.Provider {
	ds := cfg.DataSource
	switch ds.Name {
	case "rest":
		return collector.NewRESTProvider(ds.BaseURL, ds.APIKey, cfg.Proxy)
	case "csv":
		return collector.NewCSVProvider(ds.CSVDir)
	case "mock":
		return syntheticProvider(cfg)
	default:
		return collector.NewYahooProvider(ds.BaseURL, cfg.Proxy, ds.AutoAdjust)
	}
}

// syntheticProvider serves a deterministic trending series per ticker so the
// whole chain can be exercised offline.
func syntheticProvider(cfg *config.Config) *collector.MockProvider {
	mp := collector.NewMockProvider()
	start, end, _ := cfg.Range(time.Now())
	days := int(end.Sub(start).Hours() / 24)
	for k, t := range cfg.Tickers {
		closes := make([]float64, days)
		base := 50 + 25*float64(k)
		for i := range closes {
			closes[i] = base + 0.05*float64(i) + 3*math.Sin(float64(i)/7)
		}
		mp.Tables[t] = collector.MockTable(start, closes, 1e6)
	}
	return mp
}

func printSummary(w io.Writer, sum *pipeline.Summary, rows int) {
	ok := sum.Succeeded()
	fmt.Fprintf(w, "\nRun %s finished in %s\n", sum.RunID, sum.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Successfully processed %d out of %d tickers: %s\n", len(ok), len(sum.Outcomes), strings.Join(ok, ", "))
	for _, o := range sum.Outcomes {
		if !o.OK() {
			fmt.Fprintf(w, "  failed  %-8s %-10s %s\n", o.Ticker, o.Stage, o.Reason)
		}
		for _, warn := range o.Warnings {
			fmt.Fprintf(w, "  warning %-8s %s\n", o.Ticker, warn)
		}
	}
	if sum.Sample.Empty() || rows <= 0 {
		return
	}
	fmt.Fprintf(w, "\nSample data for %s (%d rows stored)\n", sum.SampleTicker, sum.Sample.Len())
	printRows(w, sum.Sample.Head(rows))
	fmt.Fprintln(w, "...")
	printRows(w, sum.Sample.Tail(rows))
}

func printRows(w io.Writer, s *model.Series) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	cols := s.Columns()
	fmt.Fprintf(tw, "date\tticker\t%s\t\n", strings.Join(cols, "\t"))
	for i := 0; i < s.Len(); i++ {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = fmt.Sprintf("%.4f", s.Value(c, i))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", s.Dates[i].Format(time.DateOnly), s.Tickers[i], strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
