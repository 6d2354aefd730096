package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var csvDateLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339, "2006/01/02", "01/02/2006"}

// CSVProvider reads <Dir>/<TICKER>.csv exports. A missing file is an empty table. The first column is the date;
// header rows before the first dated row are stacked into hierarchical labels,
// which matches the multi-row headers produced by common downloaders.
type CSVProvider struct {
	Dir string
}

// NewCSVProvider creates a provider reading files from dir.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{Dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }

func (p *CSVProvider) Fetch(ctx context.Context, ticker string, start, end time.Time) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.Dir, ticker+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	table := &RawTable{}
	if len(records) == 0 {
		return table, nil
	}
	header := records[0]
	width := len(header) - 1
	if width <= 0 {
		return nil, fmt.Errorf("%s: header has no value columns", path)
	}
	table.Labels = make([][]string, width)
	for j := 0; j < width; j++ {
		table.Labels[j] = []string{header[j+1]}
	}

	dataStarted := false
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		date, ok := parseCSVDate(rec[0])
		if !ok {
			if dataStarted {
				return nil, fmt.Errorf("%s: bad date %q", path, rec[0])
			}
			for j := 0; j < width && j+1 < len(rec); j++ {
				if lvl := strings.TrimSpace(rec[j+1]); lvl != "" {
					table.Labels[j] = append(table.Labels[j], lvl)
				}
			}
			continue
		}
		dataStarted = true
		if date.Before(start) || !date.Before(end) {
			continue
		}
		row := make([]any, width)
		for j := 0; j < width; j++ {
			if j+1 < len(rec) {
				row[j] = rec[j+1]
			}
		}
		table.Index = append(table.Index, date)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseCSVDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
