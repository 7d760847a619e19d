package config

import (
	"sort"

	"github.com/san-kum/batchreactor/internal/thermo"
)

// Presets builds a fresh copy of each built-in case on every call.
var Presets = map[string]func() *Case{
	"isomerization": isomerization,
	"dimerization":  dimerization,
	"h2-global":     hydrogenGlobal,
}

// isomerization is an exothermic first order A => B with a 200 K rise.
func isomerization() *Case {
	return &Case{
		Name: "isomerization",
		Species: []SpeciesConfig{
			{Name: "A", MolecularWeight: 50, Cp: 100e3, S298: 250e3},
			{Name: "B", MolecularWeight: 50, Cp: 100e3, H298: -20e6, S298: 250e3},
		},
		Reactions: []ReactionConfig{{
			Equation:        "A => B",
			Reactants:       map[string]float64{"A": 1},
			Products:        map[string]float64{"B": 1},
			ArrheniusConfig: ArrheniusConfig{A: 1e7, Ea: 1e8},
		}},
		Initial: InitialConfig{
			Temperature:   1000,
			Pressure:      thermo.PAtm,
			MoleFractions: map[string]float64{"A": 1},
		},
		Solver: SolverConfig{
			Integrator: "rk4",
			Dt:         1e-4,
			Duration:   0.1,
			Tolerance:  DefaultTolerance,
		},
	}
}

// dimerization is an equilibrium limited 2A <=> B diluted in argon, with
// the reverse rate from the equilibrium constant.
func dimerization() *Case {
	return &Case{
		Name: "dimerization",
		Species: []SpeciesConfig{
			{Name: "A", MolecularWeight: 30, Cp: 40e3, S298: 220e3},
			{Name: "B", MolecularWeight: 60, Cp: 75e3, H298: -150e6, S298: 300e3},
			{Name: "AR", MolecularWeight: 39.948, Cp: 20.786e3, S298: 154.85e3},
		},
		Reactions: []ReactionConfig{{
			Equation:        "2 A <=> B",
			Reactants:       map[string]float64{"A": 2},
			Products:        map[string]float64{"B": 1},
			ArrheniusConfig: ArrheniusConfig{A: 1e6, Ea: 4e7},
			Reversible:      true,
		}},
		Initial: InitialConfig{
			Temperature:   1000,
			Pressure:      thermo.PAtm,
			MoleFractions: map[string]float64{"A": 0.5, "AR": 0.5},
		},
		Solver: SolverConfig{
			Integrator: "rosenbrock",
			Dt:         1e-5,
			Duration:   0.05,
			Tolerance:  DefaultTolerance,
		},
	}
}

// hydrogenGlobal is a one step hydrogen/air mechanism with constant heat
// capacities evaluated near 1000 K.
func hydrogenGlobal() *Case {
	return &Case{
		Name: "h2-global",
		Species: []SpeciesConfig{
			{Name: "H2", MolecularWeight: 2.016, Cp: 30.2e3, S298: 130.68e3},
			{Name: "O2", MolecularWeight: 31.998, Cp: 34.9e3, S298: 205.15e3},
			{Name: "H2O", MolecularWeight: 18.015, Cp: 41.3e3, H298: -241.826e6, S298: 188.83e3},
			{Name: "N2", MolecularWeight: 28.014, Cp: 32.7e3, S298: 191.61e3},
		},
		Reactions: []ReactionConfig{{
			Equation:        "2 H2 + O2 => 2 H2O",
			Reactants:       map[string]float64{"H2": 2, "O2": 1},
			Products:        map[string]float64{"H2O": 2},
			ArrheniusConfig: ArrheniusConfig{A: 5e14, Ea: 1.25e8},
		}},
		Initial: InitialConfig{
			Temperature:   1000,
			Pressure:      thermo.PAtm,
			MoleFractions: map[string]float64{"H2": 0.296, "O2": 0.148, "N2": 0.556},
		},
		Solver: SolverConfig{
			Integrator: "rk45",
			Dt:         1e-6,
			Duration:   0.01,
			Adaptive:   true,
			Tolerance:  1e-6,
			MaxDt:      1e-4,
			MinDt:      1e-14,
		},
	}
}

func GetPreset(name string) *Case {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
