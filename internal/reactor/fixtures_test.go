package reactor_test

import (
	"github.com/san-kum/batchreactor/internal/kinetics"
	"github.com/san-kum/batchreactor/internal/reactor"
	"github.com/san-kum/batchreactor/internal/thermo"
	"gonum.org/v1/gonum/mat"

	. "github.com/onsi/gomega"
)

const (
	t0 = 1000.0
	p0 = thermo.PAtm
)

// countingKinetics records how often the kinetics map is queried.
type countingKinetics struct {
	reactor.KineticsMap
	rates       int
	derivatives int
}

func (k *countingKinetics) FormationRates(s thermo.State, c, r []float64) {
	k.rates++
	k.KineticsMap.FormationRates(s, c, r)
}

func (k *countingKinetics) FormationRateDerivatives(s thermo.State, c []float64, drdc *mat.Dense) {
	k.derivatives++
	k.KineticsMap.FormationRateDerivatives(s, c, drdc)
}

// inertNitrogen is a single species with no reactions.
func inertNitrogen() (*thermo.Map, *kinetics.Map) {
	th, err := thermo.NewMap([]thermo.Species{
		thermo.ConstantCp("N2", 28.014, 29.1e3, 0, 191.61e3),
	})
	Expect(err).NotTo(HaveOccurred())
	km, err := kinetics.NewMap(th, nil)
	Expect(err).NotTo(HaveOccurred())
	return th, km
}

// isomerization is an exothermic first order A => B.
func isomerization() (*thermo.Map, *kinetics.Map) {
	th, err := thermo.NewMap([]thermo.Species{
		thermo.ConstantCp("A", 50, 100e3, 0, 250e3),
		thermo.ConstantCp("B", 50, 100e3, -20e6, 250e3),
	})
	Expect(err).NotTo(HaveOccurred())
	km, err := kinetics.NewMap(th, []kinetics.Reaction{{
		Equation:  "A => B",
		Reactants: []kinetics.Participant{{Species: 0, Coefficient: 1}},
		Products:  []kinetics.Participant{{Species: 1, Coefficient: 1}},
		Forward:   kinetics.Arrhenius{A: 1e7, Ea: 1e8},
	}})
	Expect(err).NotTo(HaveOccurred())
	return th, km
}

// temperatureFreeMechanism has rate constants without temperature
// dependence, so the kinetic Jacobian equals the full derivative of the
// right-hand side.
func temperatureFreeMechanism() (*thermo.Map, *kinetics.Map) {
	th, err := thermo.NewMap([]thermo.Species{
		thermo.ConstantCp("A", 20, 35e3, 0, 200e3),
		thermo.ConstantCp("B", 40, 45e3, 0, 210e3),
		thermo.ConstantCp("C", 60, 80e3, -30e6, 280e3),
	})
	Expect(err).NotTo(HaveOccurred())
	km, err := kinetics.NewMap(th, []kinetics.Reaction{
		{
			Equation:   "A + B <=> C",
			Reactants:  []kinetics.Participant{{Species: 0, Coefficient: 1}, {Species: 1, Coefficient: 1}},
			Products:   []kinetics.Participant{{Species: 2, Coefficient: 1}},
			Forward:    kinetics.Arrhenius{A: 2e3},
			Reversible: true,
			Reverse:    &kinetics.Arrhenius{A: 5},
		},
		{
			Equation:  "2A + M => B + M",
			Reactants: []kinetics.Participant{{Species: 0, Coefficient: 2}},
			Products:  []kinetics.Participant{{Species: 1, Coefficient: 1}},
			Forward:   kinetics.Arrhenius{A: 1e4},
			ThirdBody: true,
		},
		{
			Equation:  "B => 2A",
			Reactants: []kinetics.Participant{{Species: 1, Coefficient: 1}},
			Products:  []kinetics.Participant{{Species: 0, Coefficient: 2}},
			Forward:   kinetics.Arrhenius{A: 3},
		},
	})
	Expect(err).NotTo(HaveOccurred())
	return th, km
}

// configured returns a model whose internal energy is that of mole
// fractions x at (t0, p0), and the matching concentrations.
func configured(th *thermo.Map, km reactor.KineticsMap, x []float64, opts ...reactor.Option) (*reactor.Model, []float64) {
	m := reactor.New(th, km, opts...)
	m.SetInitialTemperature(t0)
	m.SetInitialPressure(p0)
	m.SetInternalEnergy(th.MassInternalEnergy(t0, x))
	c, err := th.Concentrations(thermo.State{T: t0, P: p0}, x)
	Expect(err).NotTo(HaveOccurred())
	return m, c
}
