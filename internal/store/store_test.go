package store

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mwielgat/swingtune/internal/sim"
)

func sampleTrajectory() *sim.Trajectory {
	return &sim.Trajectory{
		Times: []float64{0, 0.01, 0.02},
		States: []sim.State{
			{0, 0.1, -0.05, 0, 0, 0},
			{0.001, 0.098, -0.048, 0.1, -0.2, 0.3},
			{0.002, 0.095, -0.046, 0.12, -0.21, 0.31},
		},
		Controls: []float64{12.5, 11.75, -3.25},
		Surfaces: []float64{1.5, 1.2, 0.9},
		Status:   sim.StatusConverged,
		Dt:       0.01,
		Duration: 5,
	}
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		Kind:       KindTune,
		Controller: "classical",
		Seed:       42,
		Dt:         0.01,
		Duration:   5,
		Integrator: "rk4",
		GainNames:  []string{"k1", "k2", "lambda1", "lambda2", "K", "kd"},
		Gains:      []float64{10, 8, 15, 12, 50, 5},
		Cost:       123.456,
		Reason:     "stagnated",
		Iterations: 37,
		Stable:     true,
		Status:     "converged",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	history := []float64{900, 500, 123.456}
	diversity := []float64{0.3, 0.2, 0.05}

	runID, err := st.Save(sampleMeta(), sampleTrajectory(), history, diversity)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(runID, "tune_classical_") {
		t.Errorf("run id = %q, want tune_classical_ prefix", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ID != runID {
		t.Errorf("meta id = %q, want %q", meta.ID, runID)
	}
	if meta.Seed != 42 || meta.Cost != 123.456 || !meta.Stable {
		t.Errorf("meta lost fields: %+v", meta)
	}
	if len(meta.Gains) != 6 || meta.Gains[4] != 50 {
		t.Errorf("gains = %v", meta.Gains)
	}
	if meta.Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}

	tr, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory: %v", err)
	}
	want := sampleTrajectory()
	if tr.Steps() != want.Steps() {
		t.Fatalf("steps = %d, want %d", tr.Steps(), want.Steps())
	}
	if tr.Status != sim.StatusConverged {
		t.Errorf("status = %v, want converged", tr.Status)
	}
	if tr.Dt != 0.01 || tr.Duration != 5 {
		t.Errorf("dt/duration = %g/%g", tr.Dt, tr.Duration)
	}
	for i := 0; i < want.Steps(); i++ {
		if tr.Times[i] != want.Times[i] {
			t.Errorf("time[%d] = %g, want %g", i, tr.Times[i], want.Times[i])
		}
		for j := range want.States[i] {
			if tr.States[i][j] != want.States[i][j] {
				t.Errorf("state[%d][%d] = %g, want %g", i, j, tr.States[i][j], want.States[i][j])
			}
		}
		if tr.Controls[i] != want.Controls[i] || tr.Surfaces[i] != want.Surfaces[i] {
			t.Errorf("row %d controls/surfaces differ", i)
		}
	}

	gotHist, gotDiv, err := st.LoadHistory(runID)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	for i := range history {
		if gotHist[i] != history[i] {
			t.Errorf("history[%d] = %g, want %g", i, gotHist[i], history[i])
		}
		if gotDiv[i] != diversity[i] {
			t.Errorf("diversity[%d] = %g, want %g", i, gotDiv[i], diversity[i])
		}
	}
}

func TestSaveWithoutTrajectory(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	meta := sampleMeta()
	meta.Kind = KindSimulate
	runID, err := st.Save(meta, nil, nil, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := st.LoadTrajectory(runID); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if _, _, err := st.LoadHistory(runID); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}

	// Export still works with metadata alone.
	var buf bytes.Buffer
	if err := st.Export(&buf, runID); err != nil {
		t.Fatalf("export: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Meta.ID != runID || data.Steps != 0 {
		t.Errorf("export meta/steps = %q/%d", data.Meta.ID, data.Steps)
	}
}

func TestListEmptyAndOrdering(t *testing.T) {
	st := New(t.TempDir() + "/missing")
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runs))
	}

	st = New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	first, err := st.Save(sampleMeta(), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	meta := sampleMeta()
	meta.Controller = "sta"
	second, err := st.Save(meta, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("order = %q, %q; want %q, %q", runs[0].ID, runs[1].ID, first, second)
	}
}

func TestExportFullRun(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := st.Save(sampleMeta(), sampleTrajectory(), []float64{900, 123.456}, []float64{0.2, 0.1})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.Export(&buf, runID); err != nil {
		t.Fatalf("export: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Steps != 3 || len(data.States) != 3 {
		t.Fatalf("steps = %d, states = %d", data.Steps, len(data.States))
	}
	if data.States[1][1] != 0.098 {
		t.Errorf("states[1][1] = %g, want 0.098", data.States[1][1])
	}
	if len(data.History) != 2 || data.History[1] != 123.456 {
		t.Errorf("history = %v", data.History)
	}
}

func TestLoadUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Fatal("expected an error for an unknown run")
	}
}
