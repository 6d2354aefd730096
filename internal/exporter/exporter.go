package exporter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"OHLCPipeline/internal/model"
)

// Exporter writes a processed series to a single file.
type Exporter interface {
	Export(s *model.Series, path string) error
	Extension() string
}

// Formats lists the supported export formats.
var Formats = []string{"csv", "json", "parquet", "xlsx"}

// New returns the exporter for format (csv, json, parquet, xlsx).
// Returns nil if the format is not supported.
func New(format string) Exporter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}
	case "json":
		return JSONExporter{}
	case "parquet":
		return ParquetExporter{}
	case "xlsx":
		return XLSXExporter{}
	default:
		return nil
	}
}

// WriteTicker exports s to dir/<ticker>.<ext>, creating dir if needed, and
// returns the written path.
func WriteTicker(e Exporter, dir string, s *model.Series) (string, error) {
	if s.Empty() {
		return "", fmt.Errorf("export: empty series")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, s.Symbol()+"."+e.Extension())
	if err := e.Export(s, path); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

// header returns the flat column order used by the tabular formats.
func header(s *model.Series) []string {
	return append([]string{"date", model.ColTicker}, s.Columns()...)
}

func dateStr(s *model.Series, i int) string {
	return s.Dates[i].Format("2006-01-02")
}

func floatStr(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
