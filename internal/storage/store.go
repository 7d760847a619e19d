package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/batchreactor/internal/config"
	"github.com/san-kum/batchreactor/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrMalformedRun = errors.New("storage: malformed run data")

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
	ID               string             `json:"id"`
	Case             string             `json:"case"`
	Timestamp        time.Time          `json:"timestamp"`
	Integrator       string             `json:"integrator"`
	Dt               float64            `json:"dt"`
	Duration         float64            `json:"duration"`
	Adaptive         bool               `json:"adaptive"`
	Temperature      float64            `json:"initial_temperature"`
	Pressure         float64            `json:"initial_pressure"`
	Species          []string           `json:"species"`
	Steps            int                `json:"steps"`
	Rejected         int                `json:"rejected"`
	ClosureFailures  int64              `json:"closure_failures"`
	FinalTemperature float64            `json:"final_temperature"`
	FinalPressure    float64            `json:"final_pressure"`
	Metrics          map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and states.csv for traj under a new run ID.
func (s *Store) Save(c *config.Case, traj *experiment.Trajectory) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", c.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:               runID,
		Case:             c.Name,
		Timestamp:        now,
		Integrator:       c.Solver.Integrator,
		Dt:               c.Solver.Dt,
		Duration:         c.Solver.Duration,
		Adaptive:         c.Solver.Adaptive,
		Temperature:      c.Initial.Temperature,
		Pressure:         c.Initial.Pressure,
		Species:          traj.Species,
		Steps:            traj.StepsTaken,
		Rejected:         traj.Rejected,
		ClosureFailures:  traj.ClosureFailures,
		FinalTemperature: traj.FinalTemperature(),
		FinalPressure:    traj.FinalPressure(),
		Metrics:          traj.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, traj); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per sample: time, T, P and the species
// concentrations.
func WriteCSV(out io.Writer, traj *experiment.Trajectory) error {
	w := csv.NewWriter(out)

	header := append([]string{"time", "T", "P"}, traj.Species...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range traj.Times {
		row := make([]string, 0, len(header))
		row = append(row,
			formatFloat(traj.Times[i]),
			formatFloat(traj.Temperatures[i]),
			formatFloat(traj.Pressures[i]))
		for _, val := range traj.Concentrations[i] {
			row = append(row, formatFloat(val))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of all stored runs, oldest first. Directories
// without readable metadata are skipped.
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
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRun, runID, err)
	}

	return &meta, nil
}

// LoadTrajectory reads a stored run back into a trajectory.
func (s *Store) LoadTrajectory(runID string) (*experiment.Trajectory, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	traj, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	traj.Case = meta.Case
	traj.Metrics = meta.Metrics
	traj.StepsTaken = meta.Steps
	traj.Rejected = meta.Rejected
	traj.ClosureFailures = meta.ClosureFailures
	return traj, nil
}

// ReadCSV parses the format written by WriteCSV.
func ReadCSV(in io.Reader) (*experiment.Trajectory, error) {
	r := csv.NewReader(in)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRun, err)
	}
	if len(records) == 0 || len(records[0]) < 3 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedRun)
	}

	header := records[0]
	traj := &experiment.Trajectory{
		Species:        append([]string(nil), header[3:]...),
		Times:          make([]float64, 0, len(records)-1),
		Temperatures:   make([]float64, 0, len(records)-1),
		Pressures:      make([]float64, 0, len(records)-1),
		Concentrations: make([][]float64, 0, len(records)-1),
	}

	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrMalformedRun, i+1, header[j], err)
			}
			values[j] = v
		}
		traj.Times = append(traj.Times, values[0])
		traj.Temperatures = append(traj.Temperatures, values[1])
		traj.Pressures = append(traj.Pressures, values[2])
		traj.Concentrations = append(traj.Concentrations, values[3:])
	}

	return traj, nil
}
