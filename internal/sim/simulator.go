package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/batchreactor/internal/dynamo"
)

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *slog.Logger
}

func New(sys dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     slog.New(slog.DiscardHandler),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run integrates from t=0 to cfg.Duration. On failure the states recorded so
// far are returned together with the error.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	capacity := int(cfg.Duration/cfg.Dt) + 1
	if cfg.Adaptive || capacity > 1<<16 {
		capacity = 1024
	}
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	s.record(result, x, t)

	end := cfg.Duration * (1 - 1e-12)
	for step := 0; t < end; step++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		dt = math.Min(dt, cfg.Duration-t)

		var (
			newX  dynamo.State
			taken = dt
			err   error
		)
		if cfg.Adaptive {
			var rejected int
			newX, taken, dt, rejected, err = s.adaptiveStep(x, t, dt, cfg)
			result.Rejected += rejected
		} else {
			newX, err = s.integrator.Step(s.sys, x, t, dt)
		}
		if err == nil && cfg.ValidateState && !newX.IsValid() {
			err = dynamo.ErrInvalidState
		}
		if err != nil {
			s.collect(result)
			s.logger.Warn("simulation stopped", "step", step, "t", t, "err", err)
			return result, &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
		}

		x = newX
		t += taken
		result.StepsTaken++
		s.record(result, x, t)
	}

	s.collect(result)
	s.logger.Debug("simulation finished",
		"steps", result.StepsTaken,
		"rejected", result.Rejected,
		"t", t)
	return result, nil
}

// RunWithCallback integrates with fixed steps and hands every state to
// callback. Returning false from callback stops the run without error.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamo.State, cfg dynamo.Config, callback func(dynamo.State, float64) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	t := 0.0
	end := cfg.Duration * (1 - 1e-12)

	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if !callback(x, t) || t >= end {
			return nil
		}

		dt := math.Min(cfg.Dt, cfg.Duration-t)
		newX, err := s.integrator.Step(s.sys, x, t, dt)
		if err == nil && cfg.ValidateState && !newX.IsValid() {
			err = dynamo.ErrInvalidState
		}
		if err != nil {
			return &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
		}
		x = newX
		t += dt
	}
}

func (s *Simulator) validate(x0 dynamo.State, cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if n := s.sys.NumberOfEquations(); len(x0) != n {
		return fmt.Errorf("%w: initial state has %d entries, system has %d equations",
			dynamo.ErrDimensionMismatch, len(x0), n)
	}
	return nil
}

func (s *Simulator) record(result *dynamo.Result, x dynamo.State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
}

func (s *Simulator) collect(result *dynamo.Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// adaptiveStep returns the new state, the step actually taken, the suggested
// next step and the number of rejected attempts.
func (s *Simulator) adaptiveStep(x dynamo.State, t, dt float64, cfg dynamo.Config) (dynamo.State, float64, float64, int, error) {
	maxDt := cfg.MaxDt
	if maxDt <= 0 {
		maxDt = cfg.Duration
	}

	rejected := 0
	for {
		if dt < cfg.MinDt {
			return nil, dt, dt, rejected, fmt.Errorf("%w: dt=%g", dynamo.ErrStepTooSmall, dt)
		}

		if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
			xNew, next, err := adaptive.StepAdaptive(s.sys, x, t, dt, cfg.Tolerance)
			if errors.Is(err, dynamo.ErrStepRejected) {
				rejected++
				dt = next
				continue
			}
			if err != nil {
				return nil, dt, dt, rejected, err
			}
			return xNew, dt, math.Min(next, maxDt), rejected, nil
		}

		// step doubling
		x1, err := s.integrator.Step(s.sys, x, t, dt)
		if err != nil {
			return nil, dt, dt, rejected, err
		}
		xHalf, err := s.integrator.Step(s.sys, x, t, dt/2)
		if err != nil {
			return nil, dt, dt, rejected, err
		}
		x2, err := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)
		if err != nil {
			return nil, dt, dt, rejected, err
		}

		estimate := x1.Sub(x2).Norm() / (x2.Norm() + 1e-300)
		if estimate > cfg.Tolerance {
			rejected++
			dt /= 2
			continue
		}

		next := dt
		if estimate < cfg.Tolerance/10 {
			next = math.Min(dt*2, maxDt)
		}
		return x2, dt, next, rejected, nil
	}
}
