// Package reactor implements the right-hand side of a closed, adiabatic,
// constant internal energy batch reactor for an external ODE integrator.
//
// Every call to [Model.Derivatives] or [Model.Jacobian] performs a full
// cycle:
//
//  1. reconstruct: clip the integrator concentrations at zero and derive mole
//     fractions, total concentration and mixture molecular weight;
//  2. close: recover temperature and pressure from the fixed mass internal
//     energy by successive substitution on the ideal-gas energy balance;
//  3. evaluate: ask the kinetics map for formation rates or their derivatives
//     at the closed state.
//
// The closed state is passed to the kinetics map as a value, so a configured
// [Model] holds no per-call state and may be shared by concurrent integrators.
//
//	m := reactor.New(thermoMap, kineticsMap, reactor.WithLogger(logger))
//	m.SetInitialTemperature(1000)
//	m.SetInitialPressure(thermo.PAtm)
//	m.SetInternalEnergy(u0)
//	err := m.Derivatives(t, c, dcdt)
package reactor
