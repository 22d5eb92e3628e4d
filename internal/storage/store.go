package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/newton/internal/config"
	"github.com/san-kum/newton/internal/newton"
)

const (
	metadataFile = "metadata.json"
	iteratesFile = "iterates.csv"
)

var ErrInvalidRunID = errors.New("storage: invalid run id")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string    `json:"id"`
	Problem       string    `json:"problem"`
	Description   string    `json:"description,omitempty"`
	Jacobian      string    `json:"jacobian"`
	Timestamp     time.Time `json:"timestamp"`
	Tolerance     float64   `json:"tolerance"`
	MaxIterations int       `json:"max_iterations"`
	Dx            float64   `json:"dx"`
	MaxRadius     float64   `json:"max_radius,omitempty"`
	InitialGuess  []float64 `json:"initial_guess"`
	Coeffs        []float64 `json:"coeffs,omitempty"`
	Status        string    `json:"status"`
	Root          []float64 `json:"root,omitempty"`
	Iterations    int       `json:"iterations"`
	Evaluations   int       `json:"evaluations"`
	Residual      float64   `json:"residual"`
	Error         string    `json:"error,omitempty"`
}

// Save writes one solve to its own run directory. solveErr is recorded, not returned.
func (s *Store) Save(cfg *config.Config, description string, guess []float64, result *newton.Result, solveErr error) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", cfg.Problem, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Problem:       cfg.Problem,
		Description:   description,
		Jacobian:      cfg.Jacobian,
		Timestamp:     now,
		Tolerance:     cfg.Tolerance,
		MaxIterations: cfg.MaxIterations,
		Dx:            cfg.Dx,
		MaxRadius:     cfg.MaxRadius,
		InitialGuess:  guess,
		Coeffs:        cfg.Coeffs,
		Status:        result.Status.String(),
		Root:          result.Root,
		Iterations:    result.Iterations,
		Evaluations:   result.Evaluations,
		Residual:      finiteOrZero(result.Residual),
	}
	if solveErr != nil {
		meta.Error = solveErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeIterates(filepath.Join(runDir, iteratesFile), result); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeIterates(path string, result *newton.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(result.Iterates) > 0 {
		header := []string{"iter", "residual"}
		for i := range result.Iterates[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for k, x := range result.Iterates {
		row := []string{
			strconv.Itoa(k),
			strconv.FormatFloat(result.Residuals[k], 'g', -1, 64),
		}
		for _, val := range x {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrace reads back the iterates and their residual norms.
func (s *Store) LoadTrace(runID string) ([][]float64, []float64, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filepath.Join(dir, iteratesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	iterates := make([][]float64, 0, len(records)-1)
	residuals := make([]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("iterates.csv line %d: expected at least 2 fields, got %d", i+1, len(record))
		}

		res, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("iterates.csv line %d: %w", i+1, err)
		}

		x := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("iterates.csv line %d: %w", i+1, err)
			}
			x = append(x, val)
		}

		residuals = append(residuals, res)
		iterates = append(iterates, x)
	}

	return iterates, residuals, nil
}

// ExportCSV copies the run's iterates.csv to w unchanged.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Join(dir, iteratesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

// runDir resolves a run id to its directory. Ids are single path elements.
func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || filepath.Base(runID) != runID || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
