package experiment

import "github.com/san-kum/batchreactor/internal/analysis"

// Trajectory is a simulated run with the temperature and pressure recovered
// at every recorded state.
type Trajectory struct {
	Case            string
	Species         []string
	Times           []float64
	Concentrations  [][]float64
	Temperatures    []float64
	Pressures       []float64
	Metrics         map[string]float64
	StepsTaken      int
	Rejected        int
	ClosureFailures int64
}

func (t *Trajectory) Len() int { return len(t.Times) }

func (t *Trajectory) FinalTemperature() float64 {
	if len(t.Temperatures) == 0 {
		return 0
	}
	return t.Temperatures[len(t.Temperatures)-1]
}

func (t *Trajectory) FinalPressure() float64 {
	if len(t.Pressures) == 0 {
		return 0
	}
	return t.Pressures[len(t.Pressures)-1]
}

// MoleFractions returns the composition at sample i.
func (t *Trajectory) MoleFractions(i int) []float64 {
	c := t.Concentrations[i]
	total := 0.0
	for _, v := range c {
		total += max(v, 0)
	}
	x := make([]float64, len(c))
	if total == 0 {
		return x
	}
	for k, v := range c {
		x[k] = max(v, 0) / total
	}
	return x
}

func (t *Trajectory) IgnitionDelay() (float64, error) {
	return analysis.IgnitionDelay(t.Times, t.Temperatures)
}
