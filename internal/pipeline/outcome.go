package pipeline

import (
	"time"

	"OHLCPipeline/internal/model"
)

// Status is the terminal state of one ticker in a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusSkipped marks routine short-circuits: no data, or a series that
	// failed validation.
	StatusSkipped Status = "skipped"
	// StatusFailed marks errors and recovered panics.
	StatusFailed Status = "failed"
)

// Pipeline stages, in execution order.
const (
	StageIngest    = "ingest"
	StageClean     = "clean"
	StageTransform = "transform"
	StageValidate  = "validate"
	StageStore     = "store"
	StageExport    = "export"
)

// Outcome describes how one ticker went.
type Outcome struct {
	Ticker string `json:"ticker"`
	Status Status `json:"status"`
	// Stage is the last stage reached.
	Stage  string `json:"stage"`
	Reason string `json:"reason,omitempty"`
	Rows   int    `json:"rows"`
	// Warnings hold non-fatal errors such as a failed write or export.
	Warnings   []string      `json:"warnings,omitempty"`
	ExportPath string        `json:"export_path,omitempty"`
	Took       time.Duration `json:"took"`
}

// OK reports whether the ticker made it through every stage.
func (o Outcome) OK() bool { return o.Status == StatusSucceeded }

// Summary is the result of one run.
type Summary struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`

	SampleTicker string        `json:"sample_ticker,omitempty"`
	Sample       *model.Series `json:"-"`
}

// Succeeded lists tickers that completed every stage, in run order.
func (s *Summary) Succeeded() []string {
	var out []string
	for _, o := range s.Outcomes {
		if o.OK() {
			out = append(out, o.Ticker)
		}
	}
	return out
}

// Failed lists tickers that were skipped or failed, in run order.
func (s *Summary) Failed() []string {
	var out []string
	for _, o := range s.Outcomes {
		if !o.OK() {
			out = append(out, o.Ticker)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }
