package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/batchreactor/internal/config"
	"github.com/san-kum/batchreactor/internal/dynamo"
	"github.com/san-kum/batchreactor/internal/kinetics"
	"github.com/san-kum/batchreactor/internal/metrics"
	"github.com/san-kum/batchreactor/internal/reactor"
	"github.com/san-kum/batchreactor/internal/sim"
	"github.com/san-kum/batchreactor/internal/thermo"
)

// Experiment is a case assembled into maps, a reactor model and a simulator.
type Experiment struct {
	Case     *config.Case
	Thermo   *thermo.Map
	Kinetics *kinetics.Map
	Model    *reactor.Model

	simulator *sim.Simulator
	x0        dynamo.State
	logger    *slog.Logger
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(c *config.Case, reg *Registry, opts ...Option) (*Experiment, error) {
	e := &Experiment{
		Case:   c,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(c.Solver.Integrator)
	if err != nil {
		return nil, err
	}

	if e.Thermo, err = c.Thermo(); err != nil {
		return nil, fmt.Errorf("thermo: %w", err)
	}
	if e.Kinetics, err = c.Kinetics(e.Thermo); err != nil {
		return nil, fmt.Errorf("kinetics: %w", err)
	}
	conc, err := c.InitialConcentrations(e.Thermo)
	if err != nil {
		return nil, err
	}
	u, err := c.InternalEnergy(e.Thermo)
	if err != nil {
		return nil, err
	}
	e.x0 = conc

	logger := e.logger.With("case", c.Name, "t0", c.Initial.Temperature)
	modelOpts := append(c.ModelOptions(), reactor.WithLogger(logger))
	e.Model = reactor.New(e.Thermo, e.Kinetics, modelOpts...)
	e.Model.SetInitialTemperature(c.Initial.Temperature)
	e.Model.SetInitialPressure(c.Initial.Pressure)
	e.Model.SetInternalEnergy(u)

	e.simulator = sim.New(e.Model, integ)
	e.simulator.SetLogger(logger)
	e.simulator.AddMetric(metrics.NewMassDrift(e.Thermo.MolecularWeights()))
	e.simulator.AddMetric(metrics.NewEnergyDrift(e.Model, e.Thermo, u))
	e.simulator.AddMetric(metrics.NewPeakTemperature(e.Model))
	e.simulator.AddMetric(metrics.NewPositivity(1e-12))

	return e, nil
}

// InitialState returns a copy of the initial concentrations.
func (e *Experiment) InitialState() dynamo.State { return e.x0.Clone() }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Run integrates the case. When the simulation fails part way the
// trajectory up to the failure is returned with the error.
func (e *Experiment) Run(ctx context.Context) (*Trajectory, error) {
	e.logger.Info("running case",
		"case", e.Case.Name,
		"integrator", e.Case.Solver.Integrator,
		"t0", e.Case.Initial.Temperature,
		"p0", e.Case.Initial.Pressure)

	before := e.Model.NonConvergedClosures()
	res, runErr := e.simulator.Run(ctx, e.x0, e.Case.SimConfig())
	if res == nil {
		return nil, runErr
	}
	failures := e.Model.NonConvergedClosures() - before

	traj, err := e.trajectory(res, failures)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	return traj, runErr
}

// trajectory closes every recorded state for T and P. Those closures are
// not requests of the integrator and are left out of failures.
func (e *Experiment) trajectory(res *dynamo.Result, failures int64) (*Trajectory, error) {
	traj := &Trajectory{
		Case:           e.Case.Name,
		Species:        e.Thermo.Names(),
		Times:          res.Times,
		Concentrations: make([][]float64, len(res.States)),
		Temperatures:   make([]float64, len(res.States)),
		Pressures:      make([]float64, len(res.States)),
		Metrics:        res.Metrics,
		StepsTaken:     res.StepsTaken,
		Rejected:       res.Rejected,
	}

	for i, x := range res.States {
		cs, err := e.Model.Closure(x)
		if err != nil {
			return nil, fmt.Errorf("closing state at t=%g: %w", res.Times[i], err)
		}
		traj.Concentrations[i] = x
		traj.Temperatures[i] = cs.State.T
		traj.Pressures[i] = cs.State.P
	}
	traj.ClosureFailures = failures

	if traj.ClosureFailures > 0 {
		e.logger.Warn("closure budget exhausted during run",
			"case", e.Case.Name,
			"count", traj.ClosureFailures)
	}
	return traj, nil
}
