package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/experiment"
)

func runScenario(t *testing.T, scenario, preset string, steps int) *experiment.Result {
	t.Helper()
	exp, err := experiment.New(config.GetPreset(scenario, preset),
		experiment.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background(), steps)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := runScenario(t, "single_spring", "default", 10)
	runID, err := st.Save(res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scenario != "single_spring" {
		t.Errorf("expected scenario single_spring, got %q", meta.Scenario)
	}
	if meta.Steps != 10 || meta.Frames != 11 {
		t.Errorf("steps=%d frames=%d", meta.Steps, meta.Frames)
	}
	if meta.Params.Stiffness != 20 {
		t.Errorf("expected stiffness 20, got %v", meta.Params.Stiffness)
	}
	if len(meta.SpringList()) != 1 || meta.SpringList()[0].RestLength != 2 {
		t.Errorf("springs = %+v", meta.Springs)
	}
	if meta.Obstacle != nil {
		t.Errorf("single spring has no obstacle, got %+v", meta.Obstacle)
	}
	if meta.Metrics["stability"] != 1 {
		t.Errorf("metrics = %v", meta.Metrics)
	}

	rows, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if len(rows) != 22 {
		t.Fatalf("expected 22 frame rows, got %d", len(rows))
	}

	frames := GroupFrames(rows)
	if len(frames) != 11 {
		t.Fatalf("expected 11 frames, got %d", len(frames))
	}
	final := frames[10]
	want := res.Final()
	for i, p := range want.Particles {
		if final.Particles[i] != p {
			t.Errorf("particle %d: stored %+v, want %+v", i, final.Particles[i], p)
		}
	}

	energy, err := st.LoadEnergy(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(energy) != 11 || energy[10].Total != want.Energy.Total() {
		t.Errorf("energy rows = %d", len(energy))
	}
}

func TestStoreDivergenceRecorded(t *testing.T) {
	st := New(t.TempDir())
	res := runScenario(t, "cloth", "unstable", 50)

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save(res)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Divergences) != len(res.Divergences) || len(meta.Divergences) == 0 {
		t.Errorf("stored %d divergences, result had %d", len(meta.Divergences), len(res.Divergences))
	}
	if meta.Divergences[0].Cause == "" || meta.Divergences[0].Step < 1 {
		t.Errorf("bad record %+v", meta.Divergences[0])
	}
	if meta.Obstacle == nil || meta.Obstacle.Radius != 0.5 || meta.Obstacle.Center.Y != 1.5 {
		t.Errorf("obstacle = %+v", meta.Obstacle)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	res := runScenario(t, "rectangle", "default", 5)
	first, err := st.Save(res)
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(res)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("run ids must be unique")
	}

	if err := os.Mkdir(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("runs=%v err=%v", runs, err)
	}
}

func TestSeries(t *testing.T) {
	rows := []FrameRow{
		{Step: 0, Time: 0, Particle: 0, Y: 3},
		{Step: 0, Time: 0, Particle: 1, Y: 1.5},
		{Step: 1, Time: 0.1, Particle: 0, Y: 3},
		{Step: 1, Time: 0.1, Particle: 1, Y: 1.4},
	}

	times, ys, err := Series(rows, 1, "y")
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 2 || ys[0] != 1.5 || ys[1] != 1.4 || times[1] != 0.1 {
		t.Errorf("times=%v ys=%v", times, ys)
	}

	if _, _, err := Series(rows, 1, "w"); err == nil {
		t.Error("expected error for unknown axis")
	}
	if _, _, err := Series(rows, 7, "x"); err == nil {
		t.Error("expected error for missing particle")
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save(runScenario(t, "single_spring", "default", 3))
	if err != nil {
		t.Fatal(err)
	}

	data, err := st.Export(runID)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, data); err != nil {
		t.Fatal(err)
	}

	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Run.ID != runID || len(decoded.Frames) != 8 || len(decoded.Energy) != 4 {
		t.Errorf("decoded run=%s frames=%d energy=%d", decoded.Run.ID, len(decoded.Frames), len(decoded.Energy))
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, data); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
