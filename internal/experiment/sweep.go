package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/batchreactor/internal/analysis"
	"github.com/san-kum/batchreactor/internal/config"
	"golang.org/x/sync/errgroup"
)

type SweepPoint struct {
	Temperature     float64
	IgnitionDelay   float64 // NaN when the mixture did not ignite
	PeakTemperature float64
	FinalPressure   float64
	ClosureFailures int64
}

// Sweep runs base once per initial temperature with at most workers runs in
// flight. Each point gets its own model. Points keep the order of
// temperatures.
func Sweep(ctx context.Context, base *config.Case, reg *Registry, temperatures []float64, workers int, opts ...Option) ([]SweepPoint, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	points := make([]SweepPoint, len(temperatures))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, t0 := range temperatures {
		g.Go(func() error {
			exp, err := New(base.WithTemperature(t0), reg, opts...)
			if err != nil {
				return fmt.Errorf("T0=%g: %w", t0, err)
			}
			traj, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("T0=%g: %w", t0, err)
			}

			delay, err := traj.IgnitionDelay()
			if errors.Is(err, analysis.ErrNoIgnition) {
				delay = math.NaN()
			} else if err != nil {
				return fmt.Errorf("T0=%g: %w", t0, err)
			}

			points[i] = SweepPoint{
				Temperature:     t0,
				IgnitionDelay:   delay,
				PeakTemperature: traj.Metrics["peak_temperature"],
				FinalPressure:   traj.FinalPressure(),
				ClosureFailures: traj.ClosureFailures,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
