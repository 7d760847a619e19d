package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/batchreactor/internal/experiment"
)

type ExportData struct {
	Run            *RunMetadata       `json:"run,omitempty"`
	Case           string             `json:"case"`
	Species        []string           `json:"species"`
	Steps          int                `json:"steps"`
	Times          []float64          `json:"times"`
	Temperatures   []float64          `json:"temperatures"`
	Pressures      []float64          `json:"pressures"`
	Concentrations [][]float64        `json:"concentrations"`
	Metrics        map[string]float64 `json:"metrics"`
}

// ExportJSON writes traj, and meta when it is not nil, as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, traj *experiment.Trajectory) error {
	data := ExportData{
		Run:            meta,
		Case:           traj.Case,
		Species:        traj.Species,
		Steps:          len(traj.Times),
		Times:          traj.Times,
		Temperatures:   traj.Temperatures,
		Pressures:      traj.Pressures,
		Concentrations: traj.Concentrations,
		Metrics:        traj.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
