package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReportName is the file written next to the database after each run.
const ReportName = ".lastrun.json"

type report struct {
	*Summary
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// WriteReport writes sum as indented JSON to path.
func WriteReport(path string, sum *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(report{Summary: sum, Succeeded: sum.Succeeded(), Failed: sum.Failed()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport. Returns nil if the file
// doesn't exist.
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sum := &Summary{}
	if err := json.Unmarshal(data, sum); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return sum, nil
}
