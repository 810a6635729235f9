package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/quadtask/internal/experiment"
	"github.com/san-kum/quadtask/internal/task"
)

const (
	metadataFile = "metadata.json"
	episodesFile = "episodes.csv"
	posesFile    = "poses.csv"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Policy     string             `json:"policy"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Runtime    float64            `json:"runtime"`
	Integrator string             `json:"integrator"`
	Target     [3]float64         `json:"target"`
	InitPose   task.Pose          `json:"init_pose"`
	Params     map[string]float64 `json:"params,omitempty"`
	MaxSteps   int                `json:"max_steps"`
	Summary    experiment.Summary `json:"summary"`
}

// EpisodeRecord is one row of episodes.csv.
type EpisodeRecord struct {
	Episode int
	Return  float64
	Steps   int
	Done    bool
	Metrics map[string]float64
}

// PoseRecord is one row of poses.csv.
type PoseRecord struct {
	Episode int
	Step    int
	Pose    task.Pose
	Reward  float64
	Action  task.RotorSpeeds
}

// Save writes a run directory for res and returns its id.
func (s *Store) Save(res *experiment.Result) (string, error) {
	cfg := res.Config
	policy := cfg.Policy
	if policy == "" {
		policy = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", policy, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Policy:     cfg.Policy,
		Timestamp:  now,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Runtime:    cfg.Task.Runtime,
		Integrator: cfg.Integrator,
		Target:     task.DefaultTarget,
		Params:     cfg.Params,
		MaxSteps:   cfg.MaxSteps,
		Summary:    res.Summary,
	}
	if cfg.Task.TargetPos != nil {
		meta.Target = *cfg.Task.TargetPos
	}
	if cfg.Task.InitPose != nil {
		meta.InitPose = *cfg.Task.InitPose
	}
	if meta.Runtime == 0 {
		meta.Runtime = task.DefaultRuntime
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeEpisodes(filepath.Join(runDir, episodesFile), res.Episodes); err != nil {
		return "", err
	}
	if err := writePoses(filepath.Join(runDir, posesFile), res.Episodes); err != nil {
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

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func metricNames(eps []*experiment.Episode) []string {
	seen := map[string]bool{}
	for _, ep := range eps {
		for name := range ep.Metrics {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeEpisodes(path string, eps []*experiment.Episode) error {
	names := metricNames(eps)
	header := append([]string{"episode", "return", "steps", "done"}, names...)
	rows := [][]string{header}

	for _, ep := range eps {
		row := []string{
			strconv.Itoa(ep.Index),
			formatFloat(ep.Return),
			strconv.Itoa(ep.Steps),
			strconv.FormatBool(ep.Done),
		}
		for _, name := range names {
			row = append(row, formatFloat(ep.Metrics[name]))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, rows)
}

var poseHeader = []string{
	"episode", "step",
	"x", "y", "z", "roll", "pitch", "yaw",
	"reward",
	"u0", "u1", "u2", "u3",
}

func writePoses(path string, eps []*experiment.Episode) error {
	rows := [][]string{poseHeader}
	for _, ep := range eps {
		for i, pose := range ep.Poses {
			row := make([]string, 0, len(poseHeader))
			row = append(row, strconv.Itoa(ep.Index), strconv.Itoa(i+1))
			for _, v := range pose {
				row = append(row, formatFloat(v))
			}
			row = append(row, formatFloat(ep.Rewards[i]))
			for _, v := range ep.Actions[i] {
				row = append(row, formatFloat(v))
			}
			rows = append(rows, row)
		}
	}
	return writeCSV(path, rows)
}

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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

type rowParser struct {
	row []string
	err error
}

func (p *rowParser) parseFloat(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *rowParser) parseInt(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *rowParser) parseBool(i int) bool {
	if p.err != nil {
		return false
	}
	v, err := strconv.ParseBool(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (s *Store) LoadEpisodes(runID string) ([]EpisodeRecord, error) {
	header, rows, err := readCSV(filepath.Join(s.baseDir, runID, episodesFile))
	if err != nil {
		return nil, err
	}

	out := make([]EpisodeRecord, 0, len(rows))
	for n, row := range rows {
		p := rowParser{row: row}
		rec := EpisodeRecord{
			Episode: p.parseInt(0),
			Return:  p.parseFloat(1),
			Steps:   p.parseInt(2),
			Done:    p.parseBool(3),
			Metrics: make(map[string]float64, len(header)-4),
		}
		for i := 4; i < len(header); i++ {
			rec.Metrics[header[i]] = p.parseFloat(i)
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", episodesFile, n+1, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadPoses returns the per-step poses of one episode of a run.
func (s *Store) LoadPoses(runID string, episode int) ([]PoseRecord, error) {
	_, rows, err := readCSV(filepath.Join(s.baseDir, runID, posesFile))
	if err != nil {
		return nil, err
	}

	out := make([]PoseRecord, 0)
	for n, row := range rows {
		p := rowParser{row: row}
		if p.parseInt(0) != episode {
			if p.err != nil {
				return nil, fmt.Errorf("%s row %d: %w", posesFile, n+1, p.err)
			}
			continue
		}
		rec := PoseRecord{Episode: episode, Step: p.parseInt(1)}
		for i := range rec.Pose {
			rec.Pose[i] = p.parseFloat(2 + i)
		}
		rec.Reward = p.parseFloat(8)
		for i := range rec.Action {
			rec.Action[i] = p.parseFloat(9 + i)
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", posesFile, n+1, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}
