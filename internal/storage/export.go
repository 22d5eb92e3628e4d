package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Iterates  [][]float64 `json:"iterates"`
	Residuals []float64   `json:"residuals"`
}

// ExportJSON writes the run metadata together with its full iterate history.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	iterates, residuals, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Iterates:    iterates,
		Residuals:   residuals,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
