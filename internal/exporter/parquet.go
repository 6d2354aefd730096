package exporter

import (
	"github.com/parquet-go/parquet-go"

	"OHLCPipeline/internal/model"
)

// ParquetExporter writes records as a Parquet file with optional indicator columns.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string { return "parquet" }

func (ParquetExporter) Export(s *model.Series, path string) error {
	return parquet.WriteFile(path, Records(s))
}
