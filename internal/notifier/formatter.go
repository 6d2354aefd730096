package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"OHLCPipeline/internal/pipeline"
)

// FormatRunSummary formats a pipeline summary into a Telegram message.
func FormatRunSummary(sum *pipeline.Summary) string {
	var b strings.Builder

	ok := sum.Succeeded()
	total := len(sum.Outcomes)
	icon := "✅"
	switch {
	case len(ok) == 0 && total > 0:
		icon = "❌"
	case len(ok) < total:
		icon = "⚠️"
	}

	b.WriteString(fmt.Sprintf("%s <b>OHLC ETL</b> | %s\n\n", icon, sum.Started.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Succeeded: %d / %d\n", len(ok), total))
	b.WriteString(fmt.Sprintf("Took: %s\n", sum.Duration().Round(time.Second)))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", sum.RunID))

	if len(ok) > 0 {
		b.WriteString(fmt.Sprintf("\n📈 %s\n", strings.Join(ok, ", ")))
	}

	var failed []pipeline.Outcome
	for _, o := range sum.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n<b>Failed:</b>\n")
		for i, o := range failed {
			if i >= 5 && len(failed) > 6 {
				b.WriteString(fmt.Sprintf("  (+%d more)\n", len(failed)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s [%s] %s\n", o.Ticker, o.Stage, html.EscapeString(o.Reason)))
		}
	}

	var warned int
	for _, o := range sum.Outcomes {
		warned += len(o.Warnings)
	}
	if warned > 0 {
		b.WriteString(fmt.Sprintf("\n%d warning(s), see logs\n", warned))
	}
	return b.String()
}

// FormatStatus formats the last run for the /status command.
func FormatStatus(sum *pipeline.Summary, next time.Time) string {
	if sum == nil {
		return "No run has completed yet."
	}
	var b strings.Builder
	b.WriteString(FormatRunSummary(sum))
	if !next.IsZero() {
		b.WriteString(fmt.Sprintf("\nNext run: %s", next.Format("2006-01-02 15:04")))
	}
	return b.String()
}
