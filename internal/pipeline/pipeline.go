package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"OHLCPipeline/internal/calculator"
	"OHLCPipeline/internal/cleaner"
	"OHLCPipeline/internal/collector"
	"OHLCPipeline/internal/exporter"
	"OHLCPipeline/internal/metrics"
	"OHLCPipeline/internal/model"
	"OHLCPipeline/internal/recorder"
	"OHLCPipeline/internal/validator"
)

// Options is the per-run configuration.
type Options struct {
	Tickers []string
	// Start is inclusive, End exclusive.
	Start time.Time
	End   time.Time
	Table string
	// FreshRun deletes the existing store before the first ticker.
	FreshRun bool
	// SampleRows > 0 reads back the first succeeded ticker after the run.
	SampleRows int
	// ExportDir receives one file per succeeded ticker when an Exporter is set.
	ExportDir string
	// ReportPath, when set, receives a JSON report of the run.
	ReportPath string
}

// Pipeline runs Ingest, Clean, Transform, Validate and Store for each ticker.
type Pipeline struct {
	Options

	Ingestor  *collector.Ingestor
	Cleaner   *cleaner.Cleaner
	Engineer  *calculator.FeatureEngineer
	Validator *validator.Validator
	Store     recorder.Store
	// Exporter and Metrics are optional.
	Exporter exporter.Exporter
	Metrics  *metrics.Recorder
	Logger   *zap.Logger
}

// New wires a pipeline with the default cleaner, feature engineer and validator.
func New(opts Options, in *collector.Ingestor, store recorder.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = &recorder.NoopStore{}
	}
	return &Pipeline{
		Options:   opts,
		Ingestor:  in,
		Cleaner:   cleaner.New(logger),
		Engineer:  calculator.NewFeatureEngineer(logger),
		Validator: validator.New(logger),
		Store:     store,
		Logger:    logger.Named("pipeline"),
	}
}

// Run processes every configured ticker in order. It never returns an error:
// per-ticker problems are recorded in the summary's outcomes.
func (p *Pipeline) Run(ctx context.Context) *Summary {
	sum := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	log := p.Logger.With(zap.String("run_id", sum.RunID))
	log.Info("run started",
		zap.Strings("tickers", p.Tickers),
		zap.String("start", p.Start.Format(time.DateOnly)),
		zap.String("end", p.End.Format(time.DateOnly)),
		zap.String("store", p.Store.Name()),
		zap.Bool("fresh_run", p.FreshRun))

	if p.FreshRun {
		if err := p.Store.Reset(); err != nil {
			log.Error("could not reset store", zap.Error(err))
		}
	}

	for _, ticker := range p.Tickers {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = Outcome{Ticker: ticker, Status: StatusFailed, Stage: StageIngest, Reason: err.Error()}
		} else {
			o = p.processTicker(ctx, log, ticker)
		}
		p.Metrics.TickerDone(string(o.Status))
		sum.Outcomes = append(sum.Outcomes, o)
	}

	if p.SampleRows > 0 {
		p.sample(ctx, log, sum)
	}

	sum.Finished = time.Now()
	p.Metrics.RunFinished(sum.Finished, sum.Duration())
	log.Info("run finished",
		zap.Int("succeeded", len(sum.Succeeded())),
		zap.Int("total", len(p.Tickers)),
		zap.Strings("failed", sum.Failed()),
		zap.Duration("took", sum.Duration()))

	if p.ReportPath != "" {
		if err := WriteReport(p.ReportPath, sum); err != nil {
			log.Error("could not write run report", zap.Error(err))
		}
	}
	return sum
}

// processTicker runs every stage for one ticker. Panics are recovered and
// reported as a failed outcome at the stage that raised them.
func (p *Pipeline) processTicker(ctx context.Context, log *zap.Logger, ticker string) (o Outcome) {
	log = log.With(zap.String("ticker", ticker))
	o = Outcome{Ticker: ticker, Stage: StageIngest}
	begin := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected failure",
				zap.String("stage", o.Stage),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			o.Status = StatusFailed
			o.Reason = fmt.Sprintf("panic: %v", r)
		}
		o.Took = time.Since(begin)
		log.Info("ticker done", zap.String("status", string(o.Status)), zap.String("stage", o.Stage), zap.Int("rows", o.Rows))
	}()

	log.Info("processing ticker")
	stage := func(name string, fn func()) {
		o.Stage = name
		t := time.Now()
		fn()
		p.Metrics.ObserveStage(name, time.Since(t))
	}

	var s *model.Series
	stage(StageIngest, func() { s = p.Ingestor.Ingest(ctx, ticker, p.Start, p.End) })
	if s.Empty() {
		return skip(o, "no data ingested")
	}

	stage(StageClean, func() { s = p.Cleaner.Clean(s) })
	if s.Empty() {
		return skip(o, "no rows left after cleaning")
	}

	stage(StageTransform, func() { s = p.Engineer.Transform(s) })

	var verr error
	stage(StageValidate, func() { verr = p.Validator.Check(s) })
	if verr != nil {
		return skip(o, verr.Error())
	}

	o.Rows = s.Len()
	var serr error
	stage(StageStore, func() { serr = p.Store.Persist(ctx, s, p.Table) })
	if serr != nil {
		log.Error("could not store data", zap.Error(serr))
		o.Warnings = append(o.Warnings, "store: "+serr.Error())
	} else {
		p.Metrics.RowsStored(ticker, s.Len())
	}

	if p.Exporter != nil {
		var (
			path string
			eerr error
		)
		stage(StageExport, func() { path, eerr = exporter.WriteTicker(p.Exporter, p.ExportDir, s) })
		if eerr != nil {
			log.Error("could not export data", zap.Error(eerr))
			o.Warnings = append(o.Warnings, "export: "+eerr.Error())
		} else {
			o.ExportPath = path
		}
	}

	o.Status = StatusSucceeded
	return o
}

func skip(o Outcome, reason string) Outcome {
	o.Status = StatusSkipped
	o.Reason = reason
	return o
}

func (p *Pipeline) sample(ctx context.Context, log *zap.Logger, sum *Summary) {
	ok := sum.Succeeded()
	if len(ok) == 0 {
		return
	}
	sum.SampleTicker = ok[0]
	data, err := p.Store.Query(ctx, p.Table, recorder.Filter{Ticker: sum.SampleTicker})
	if err != nil {
		log.Error("sample query failed", zap.String("ticker", sum.SampleTicker), zap.Error(err))
	}
	sum.Sample = data
}
