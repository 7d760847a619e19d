package metrics

import (
	"math"

	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/reactor"
)

// Closer recovers temperature and pressure for a concentration vector
// without touching the model's non-convergence diagnostics.
type Closer interface {
	Closure(c []float64) (reactor.ClosedState, error)
}

// InternalEnergyMap evaluates the mixture internal energy in J/kg.
type InternalEnergyMap interface {
	MassInternalEnergy(t float64, x []float64) float64
}

// EnergyDrift tracks the largest relative deviation of the mixture internal
// energy, evaluated at the closed temperature, from the reactor setpoint.
type EnergyDrift struct {
	name     string
	closer   Closer
	thermo   InternalEnergyMap
	u        float64
	maxDrift float64
	failures int
}

func NewEnergyDrift(closer Closer, th InternalEnergyMap, u float64) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		closer: closer,
		thermo: th,
		u:      u,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	cs, err := e.closer.Closure(x)
	if err != nil {
		e.failures++
		return
	}

	energy := e.thermo.MassInternalEnergy(cs.State.T, cs.MoleFractions)
	drift := math.Abs(energy - e.u)
	if e.u != 0 {
		drift /= math.Abs(e.u)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Failures is the number of states the closure could not evaluate.
func (e *EnergyDrift) Failures() int { return e.failures }

func (e *EnergyDrift) Reset() {
	e.maxDrift = 0
	e.failures = 0
}

// MassDrift tracks the largest relative change of the density sum(c_i MW_i),
// which the kinetics must conserve in a closed vessel.
type MassDrift struct {
	name     string
	mw       []float64
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift(molecularWeights []float64) *MassDrift {
	return &MassDrift{
		name: "mass_drift",
		mw:   molecularWeights,
	}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(x dynamo.State, t float64) {
	rho := 0.0
	for i, c := range x {
		if i < len(m.mw) {
			rho += c * m.mw[i]
		}
	}

	if m.samples == 0 {
		m.initial = rho
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(rho-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassDrift) Value() float64 {
	return m.maxDrift
}

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
