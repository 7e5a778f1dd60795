package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/experiment"
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

func (s *Store) Dir() string { return s.baseDir }

type SpringRecord struct {
	I          int     `json:"i"`
	J          int     `json:"j"`
	RestLength float64 `json:"rest_length"`
}

type DivergenceRecord struct {
	Particle int    `json:"particle"`
	Cause    string `json:"cause"`
	Step     int    `json:"step"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Params      dynamo.Params      `json:"params"`
	Mass        float64            `json:"mass"`
	Steps       int                `json:"steps"`
	SampleEvery int                `json:"sample_every"`
	Rebuilds    int                `json:"rebuilds"`
	Frames      int                `json:"frames"`
	Springs     []SpringRecord     `json:"springs"`
	Obstacle    *dynamo.Obstacle   `json:"obstacle,omitempty"`
	Divergences []DivergenceRecord `json:"divergences,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// SpringList converts the stored springs back to the arena form.
func (m *RunMetadata) SpringList() []dynamo.Spring {
	out := make([]dynamo.Spring, len(m.Springs))
	for i, r := range m.Springs {
		out[i] = dynamo.Spring{I: r.I, J: r.J, RestLength: r.RestLength}
	}
	return out
}

// Save writes res as <id>/metadata.json, <id>/frames.csv and <id>/energy.csv.
func (s *Store) Save(res *experiment.Result) (string, error) {
	runID, runDir, err := s.newRunDir(res.Scenario)
	if err != nil {
		return "", err
	}

	w, err := NewRunWriter(runDir)
	if err != nil {
		return "", err
	}
	for _, snap := range res.Snapshots {
		if err := w.WriteSnapshot(snap); err != nil {
			w.Close()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    res.Scenario,
		Timestamp:   time.Now(),
		Params:      res.Config.Params,
		Mass:        res.Config.Mass,
		Steps:       res.StepsTaken,
		SampleEvery: res.Config.SampleEvery,
		Rebuilds:    res.Rebuilds,
		Frames:      len(res.Snapshots),
		Springs:     make([]SpringRecord, len(res.Springs)),
		Metrics:     res.Metrics,
	}
	if res.Config.Obstacle != nil {
		o := res.Config.Obstacle.Obstacle()
		meta.Obstacle = &o
	}
	for i, sp := range res.Springs {
		meta.Springs[i] = SpringRecord{I: sp.I, J: sp.J, RestLength: sp.RestLength}
	}
	for _, ev := range res.Divergences {
		meta.Divergences = append(meta.Divergences, DivergenceRecord{
			Particle: ev.ParticleIndex,
			Cause:    ev.Cause.String(),
			Step:     ev.Step,
		})
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	return runID, nil
}

func (s *Store) newRunDir(scenario string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", scenario, time.Now().Unix())
	runID := base
	for n := 1; ; n++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]FrameRow, error) {
	var rows []FrameRow
	if err := s.unmarshal(runID, framesFile, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LoadEnergy(runID string) ([]EnergyRow, error) {
	var rows []EnergyRow
	if err := s.unmarshal(runID, energyFile, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) unmarshal(runID, name string, out interface{}) error {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("reading %s/%s: %w", runID, name, err)
	}
	return nil
}
