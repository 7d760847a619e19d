// Package dynamo provides the ODE primitives shared by the reactor model,
// the integrators and the simulator.
//
// The package defines the fundamental interfaces and types:
//
//   - [State]: vector representing the integrator state
//   - [System]: interface for autonomous or time-dependent ODE systems (dX/dt = f(X, t))
//   - [JacobianSystem]: a [System] that also exposes df/dX for stiff solvers
//   - [Integrator]: one-step numerical integrator
//   - [Metric] and [Observer]: per-step hooks used by the simulator
//
// # Example
//
//	model := reactor.New(thermoMap, kineticsMap)
//	integ := integrators.NewRosenbrock()
//	s := sim.New(model, integ)
//	result, _ := s.Run(ctx, c0, cfg)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Systems may be
// shared when their implementation says so; [reactor.Model] is safe for
// concurrent use once configured.
package dynamo
