package reactor

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/san-kum/batchreactor/internal/thermo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxClosureIterations = 10
	DefaultClosureTolerance     = 1e-4
)

// ThermodynamicMap is the mixture property service the model closes against.
// The enthalpy passed to TemperatureFromEnthalpyAndMoleFractions is molar
// (J/kmol).
type ThermodynamicMap interface {
	NumberOfSpecies() int
	MolecularWeightFromMoleFractions(x []float64) float64
	TemperatureFromEnthalpyAndMoleFractions(h, p float64, x []float64, tGuess float64) (float64, error)
}

// KineticsMap evaluates formation rates at an explicit thermodynamic state.
type KineticsMap interface {
	FormationRates(s thermo.State, c, r []float64)
	FormationRateDerivatives(s thermo.State, c []float64, drdc *mat.Dense)
}

// Model is the adiabatic batch reactor ODE system. The maps are shared, not
// owned, and must outlive the model.
type Model struct {
	thermo   ThermodynamicMap
	kinetics KineticsMap
	n        int

	tInitial float64
	pInitial float64
	u        float64
	tSet     bool
	pSet     bool
	uSet     bool

	maxClosureIterations int
	closureTolerance     float64
	strictClosure        bool
	logger               *slog.Logger

	nonConverged atomic.Int64
}

// Option configures a Model at construction.
type Option func(*Model)

// WithMaxClosureIterations sets the closure iteration budget (default 10).
func WithMaxClosureIterations(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxClosureIterations = n
		}
	}
}

// WithClosureTolerance sets the relative pressure change that ends the
// closure (default 1e-4).
func WithClosureTolerance(tol float64) Option {
	return func(m *Model) {
		if tol > 0 {
			m.closureTolerance = tol
		}
	}
}

// WithStrictClosure makes a non-converged closure fail the call with a
// *ClosureNonConvergenceWarning instead of only being counted and logged.
func WithStrictClosure() Option {
	return func(m *Model) { m.strictClosure = true }
}

// WithLogger sets the logger for closure diagnostics. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a model over th and km. Initial temperature, pressure and
// internal energy must be set before the first evaluation.
func New(th ThermodynamicMap, km KineticsMap, opts ...Option) *Model {
	m := &Model{
		thermo:               th,
		kinetics:             km,
		n:                    th.NumberOfSpecies(),
		maxClosureIterations: DefaultMaxClosureIterations,
		closureTolerance:     DefaultClosureTolerance,
		logger:               slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetInitialTemperature sets the seed temperature of the closure in K.
func (m *Model) SetInitialTemperature(t float64) {
	m.tInitial = t
	m.tSet = true
}

// SetInitialPressure sets the seed pressure of the closure in Pa.
func (m *Model) SetInitialPressure(p float64) {
	m.pInitial = p
	m.pSet = true
}

// SetInternalEnergy sets the conserved mass internal energy in J/kg.
func (m *Model) SetInternalEnergy(u float64) {
	m.u = u
	m.uSet = true
}

// Configured values; zero until set.
func (m *Model) InitialTemperature() float64 { return m.tInitial }
func (m *Model) InitialPressure() float64    { return m.pInitial }
func (m *Model) InternalEnergy() float64     { return m.u }

// NumberOfEquations is the ODE dimension, one equation per species.
func (m *Model) NumberOfEquations() int { return m.n }

// NonConvergedClosures counts closures that exhausted their iteration budget
// since the model was created.
func (m *Model) NonConvergedClosures() int64 { return m.nonConverged.Load() }

func (m *Model) checkConfiguration() error {
	switch {
	case !m.tSet || !(m.tInitial > 0) || math.IsInf(m.tInitial, 0):
		return fmt.Errorf("%w: initial temperature %g", ErrUninitializedConfiguration, m.tInitial)
	case !m.pSet || !(m.pInitial > 0) || math.IsInf(m.pInitial, 0):
		return fmt.Errorf("%w: initial pressure %g", ErrUninitializedConfiguration, m.pInitial)
	case !m.uSet || math.IsNaN(m.u) || math.IsInf(m.u, 0):
		return fmt.Errorf("%w: internal energy", ErrUninitializedConfiguration)
	}
	return nil
}
