package exporter

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"OHLCPipeline/internal/model"
)

// XLSXExporter writes one sheet named after the ticker.
type XLSXExporter struct{}

func (XLSXExporter) Extension() string { return "xlsx" }

func (XLSXExporter) Export(s *model.Series, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.Symbol()
	if sheet == "" {
		sheet = "data"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	hdr := header(s)
	cells := make([]any, len(hdr))
	for j, h := range hdr {
		cells[j] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return err
	}

	cols := s.Columns()
	for i := 0; i < s.Len(); i++ {
		row := make([]any, len(hdr))
		row[0] = dateStr(s, i)
		row[1] = s.Tickers[i]
		for j, c := range cols {
			if v := s.Value(c, i); !math.IsNaN(v) {
				row[j+2] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.SaveAs(path)
}
