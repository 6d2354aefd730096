package exporter

import (
	"encoding/csv"
	"os"

	"OHLCPipeline/internal/model"
)

// CSVExporter writes one header row then one row per observation. Missing
// values are empty cells.
type CSVExporter struct{}

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Export(s *model.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	cols := s.Columns()
	if err := w.Write(header(s)); err != nil {
		return err
	}
	row := make([]string, len(cols)+2)
	for i := 0; i < s.Len(); i++ {
		row[0] = dateStr(s, i)
		row[1] = s.Tickers[i]
		for j, c := range cols {
			row[j+2] = floatStr(s.Value(c, i))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
