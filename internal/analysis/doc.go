// Package analysis extracts combustion characteristics from a simulated
// temperature history:
//
//   - [IgnitionDelay]: time of the steepest temperature rise
//   - [TemperatureRise]: peak temperature minus the initial temperature
//   - [Equilibrated]: whether the tail of the history has stopped changing
//
// All functions take parallel slices of sample times and temperatures as
// recorded by the simulator.
//
//	delay, err := analysis.IgnitionDelay(traj.Times, traj.Temperatures)
//	if errors.Is(err, analysis.ErrNoIgnition) {
//	    // mixture did not ignite within the run
//	}
package analysis
