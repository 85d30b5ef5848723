// Package store persists runs as one directory per run under a base dir:
// metadata.json, trajectory.csv and, for tuning sessions, history.csv.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mwielgat/swingtune/internal/sim"
)

const (
	KindTune     = "tune"
	KindSimulate = "simulate"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory of a run, so derived artifacts (plots) can be
// placed next to the run data.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// RunMetadata summarizes one saved run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Controller string    `json:"controller"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       int64     `json:"seed"`
	Dt         float64   `json:"dt"`
	Duration   float64   `json:"duration"`
	Integrator string    `json:"integrator"`
	GainNames  []string  `json:"gain_names,omitempty"`
	Gains      []float64 `json:"gains"`
	Cost       float64   `json:"cost"`
	Reason     string    `json:"reason,omitempty"`
	Iterations int       `json:"iterations,omitempty"`
	Stable     bool      `json:"stable"`
	Status     string    `json:"status"`
}

// trajectoryHeader fixes the column layout of trajectory.csv.
var trajectoryHeader = []string{"time", "x", "theta1", "theta2", "x_dot", "omega1", "omega2", "u", "s"}

// Save writes one run and returns its id. The trajectory may be nil (a
// cancelled session with no candidate); history and diversity are written
// only when present.
func (s *Store) Save(meta RunMetadata, tr *sim.Trajectory, history, diversity []float64) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", meta.Kind, meta.Controller, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if err := writeJSONFile(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if tr != nil && tr.Steps() > 0 {
		if err := writeTrajectory(filepath.Join(runDir, "trajectory.csv"), tr); err != nil {
			return "", err
		}
	}
	if len(history) > 0 {
		if err := writeHistory(filepath.Join(runDir, "history.csv"), history, diversity); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// List returns the metadata of every readable run, oldest first. A missing
// base dir is an empty store, not an error.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory rehydrates a saved run's trajectory, status included.
func (s *Store) LoadTrajectory(runID string) (*sim.Trajectory, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &sim.Trajectory{Dt: meta.Dt, Duration: meta.Duration}
	if st, ok := sim.ParseStatus(meta.Status); ok {
		tr.Status = st
	}

	for i, record := range records {
		if i == 0 || len(record) != len(trajectoryHeader) {
			continue
		}
		vals := make([]float64, len(record))
		bad := false
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				bad = true
				break
			}
			vals[j] = v
		}
		if bad {
			continue
		}
		tr.Times = append(tr.Times, vals[0])
		tr.States = append(tr.States, sim.State(vals[1:7]))
		tr.Controls = append(tr.Controls, vals[7])
		tr.Surfaces = append(tr.Surfaces, vals[8])
	}
	return tr, nil
}

// LoadHistory returns the per-iteration best costs and, when recorded,
// diversity of a tuning run.
func (s *Store) LoadHistory(runID string) (history, diversity []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
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

	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		cost, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		history = append(history, cost)
		if len(record) > 2 {
			if div, err := strconv.ParseFloat(record[2], 64); err == nil {
				diversity = append(diversity, div)
			}
		}
	}
	return history, diversity, nil
}

func writeJSONFile(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrajectory(path string, tr *sim.Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}
	row := make([]string, len(trajectoryHeader))
	for i := 0; i < tr.Steps(); i++ {
		row[0] = formatFloat(tr.Times[i])
		for j, v := range tr.States[i] {
			row[1+j] = formatFloat(v)
		}
		row[7] = formatFloat(tr.Controls[i])
		row[8] = formatFloat(tr.Surfaces[i])
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeHistory(path string, history, diversity []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	withDiv := len(diversity) == len(history)
	header := []string{"iteration", "best_cost"}
	if withDiv {
		header = append(header, "diversity")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, c := range history {
		row := []string{strconv.Itoa(i), formatFloat(c)}
		if withDiv {
			row = append(row, formatFloat(diversity[i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatFloat round-trips exactly through ParseFloat.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
