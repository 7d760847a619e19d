package reactor

import (
	"fmt"
	"math"
)

// Composition is the physically valid state reconstructed from raw
// integrator concentrations.
type Composition struct {
	Concentrations     []float64 // clipped, kmol/m3
	MoleFractions      []float64
	TotalConcentration float64 // kmol/m3
	MolecularWeight    float64 // kg/kmol
}

// Reconstruct clips c at zero and derives mole fractions, total
// concentration and mixture molecular weight. c is not modified.
func (m *Model) Reconstruct(c []float64) (Composition, error) {
	if len(c) != m.n {
		return Composition{}, fmt.Errorf("%w: %d concentrations for %d species", ErrDimensionMismatch, len(c), m.n)
	}

	clipped := make([]float64, m.n)
	total := 0.0
	for i, ci := range c {
		if math.IsNaN(ci) || math.IsInf(ci, 0) {
			return Composition{}, &DegenerateStateError{Index: i, TotalConcentration: math.NaN()}
		}
		clipped[i] = math.Max(ci, 0)
		total += clipped[i]
	}
	if !(total > 0) {
		return Composition{}, &DegenerateStateError{Index: -1, TotalConcentration: total}
	}

	x := make([]float64, m.n)
	for i, ci := range clipped {
		x[i] = ci / total
	}

	return Composition{
		Concentrations:     clipped,
		MoleFractions:      x,
		TotalConcentration: total,
		MolecularWeight:    m.thermo.MolecularWeightFromMoleFractions(x),
	}, nil
}
