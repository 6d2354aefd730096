package exporter

import (
	"encoding/json"
	"os"

	"OHLCPipeline/internal/model"
)

// JSONExporter writes an indented array of records.
type JSONExporter struct{}

func (JSONExporter) Extension() string { return "json" }

func (JSONExporter) Export(s *model.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(s)); err != nil {
		return err
	}
	return f.Close()
}
