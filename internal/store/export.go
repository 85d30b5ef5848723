package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mwielgat/swingtune/internal/sim"
)

// ExportData is the full JSON form of one run.
type ExportData struct {
	Meta      RunMetadata `json:"meta"`
	Steps     int         `json:"steps"`
	Times     []float64   `json:"times,omitempty"`
	States    [][]float64 `json:"states,omitempty"`
	Controls  []float64   `json:"controls,omitempty"`
	Surfaces  []float64   `json:"surfaces,omitempty"`
	History   []float64   `json:"history,omitempty"`
	Diversity []float64   `json:"diversity,omitempty"`
}

// WriteJSON streams one run as indented JSON.
func WriteJSON(w io.Writer, meta RunMetadata, tr *sim.Trajectory, history, diversity []float64) error {
	data := ExportData{Meta: meta, History: history, Diversity: diversity}
	if tr != nil {
		data.Steps = tr.Steps()
		data.Times = tr.Times
		data.States = make([][]float64, len(tr.States))
		for i, s := range tr.States {
			data.States[i] = s
		}
		data.Controls = tr.Controls
		data.Surfaces = tr.Surfaces
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Export streams a stored run by id. Runs without a trajectory or history
// export whatever they have.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	var tr *sim.Trajectory
	if t, err := s.LoadTrajectory(runID); err == nil {
		tr = t
	} else if !os.IsNotExist(err) {
		return err
	}

	history, diversity, err := s.LoadHistory(runID)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return WriteJSON(w, *meta, tr, history, diversity)
}
