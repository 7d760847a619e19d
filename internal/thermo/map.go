package thermo

import (
	"fmt"
	"math"
)

const (
	maxInversionIterations = 100
	inversionTolerance     = 1e-10
	minTemperature         = 50.0
	maxTemperature         = 10000.0
)

// Map is an immutable ideal-gas mixture description.
type Map struct {
	species []Species
	index   map[string]int
	mw      []float64
}

// NewMap validates the species and indexes them by name. Names must be unique.
func NewMap(species []Species) (*Map, error) {
	if len(species) == 0 {
		return nil, ErrNoSpecies
	}
	m := &Map{
		species: make([]Species, len(species)),
		index:   make(map[string]int, len(species)),
		mw:      make([]float64, len(species)),
	}
	for i, s := range species {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, ok := m.index[s.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpecies, s.Name)
		}
		m.species[i] = s
		m.index[s.Name] = i
		m.mw[i] = s.MolecularWeight
	}
	return m, nil
}

func (m *Map) NumberOfSpecies() int { return len(m.species) }

func (m *Map) Species(i int) Species { return m.species[i] }

func (m *Map) Names() []string {
	names := make([]string, len(m.species))
	for i, s := range m.species {
		names[i] = s.Name
	}
	return names
}

func (m *Map) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

func (m *Map) MolecularWeights() []float64 {
	mw := make([]float64, len(m.mw))
	copy(mw, m.mw)
	return mw
}

// MolecularWeightFromMoleFractions returns the mixture molecular weight in kg/kmol.
func (m *Map) MolecularWeightFromMoleFractions(x []float64) float64 {
	sum := 0.0
	for i, xi := range x {
		sum += xi * m.mw[i]
	}
	return sum
}

// MolarEnthalpy returns the mixture enthalpy in J/kmol.
func (m *Map) MolarEnthalpy(t float64, x []float64) float64 {
	sum := 0.0
	for i := range m.species {
		if x[i] != 0 {
			sum += x[i] * m.species[i].Enthalpy(t)
		}
	}
	return sum
}

// MolarCp returns the mixture heat capacity in J/(kmol K).
func (m *Map) MolarCp(t float64, x []float64) float64 {
	sum := 0.0
	for i := range m.species {
		if x[i] != 0 {
			sum += x[i] * m.species[i].Cp(t)
		}
	}
	return sum
}

func (m *Map) MolarInternalEnergy(t float64, x []float64) float64 {
	return m.MolarEnthalpy(t, x) - R*t
}

// MassEnthalpy returns the mixture enthalpy in J/kg.
func (m *Map) MassEnthalpy(t float64, x []float64) float64 {
	return m.MolarEnthalpy(t, x) / m.MolecularWeightFromMoleFractions(x)
}

// MassInternalEnergy returns the mixture internal energy in J/kg.
func (m *Map) MassInternalEnergy(t float64, x []float64) float64 {
	return m.MolarInternalEnergy(t, x) / m.MolecularWeightFromMoleFractions(x)
}

// StandardGibbs returns the standard-state Gibbs energy of species i in J/kmol.
func (m *Map) StandardGibbs(i int, t float64) float64 {
	return m.species[i].Gibbs(t)
}

// Concentrations returns the ideal-gas concentrations in kmol/m3 of a
// mixture with mole fractions x at state s.
func (m *Map) Concentrations(s State, x []float64) ([]float64, error) {
	if len(x) != len(m.species) {
		return nil, ErrDimensionMismatch
	}
	cTot := s.P / (R * s.T)
	c := make([]float64, len(x))
	for i, xi := range x {
		c[i] = cTot * xi
	}
	return c, nil
}

// TemperatureFromEnthalpyAndMoleFractions inverts h(T) = h for a mixture
// with mole fractions x, starting from tGuess. h is molar (J/kmol). The ideal
// gas enthalpy does not depend on pressure; p is accepted for symmetry with
// non-ideal maps.
func (m *Map) TemperatureFromEnthalpyAndMoleFractions(h, p float64, x []float64, tGuess float64) (float64, error) {
	if len(x) != len(m.species) {
		return 0, ErrDimensionMismatch
	}
	t := tGuess
	if !(t > minTemperature && t < maxTemperature) {
		t = 1000
	}
	for i := 0; i < maxInversionIterations; i++ {
		cp := m.MolarCp(t, x)
		if !(cp > 0) {
			return 0, fmt.Errorf("%w: non-positive heat capacity at T=%g", ErrEnthalpyInversion, t)
		}
		dt := (m.MolarEnthalpy(t, x) - h) / cp
		next := math.Min(math.Max(t-dt, minTemperature), maxTemperature)
		if next != t-dt && next == t {
			return 0, fmt.Errorf("%w: h=%g J/kmol is outside [%g, %g] K", ErrEnthalpyInversion, h, minTemperature, maxTemperature)
		}
		if math.Abs(next-t) <= inversionTolerance*next {
			return next, nil
		}
		t = next
	}
	return 0, fmt.Errorf("%w: h=%g J/kmol after %d iterations (T=%g)", ErrEnthalpyInversion, h, maxInversionIterations, t)
}
