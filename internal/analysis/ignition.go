package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrTooFewSamples  = errors.New("analysis: at least two samples required")
	ErrLengthMismatch = errors.New("analysis: times and temperatures differ in length")
	ErrNoIgnition     = errors.New("analysis: temperature never rises")
)

func check(times, temperatures []float64) error {
	if len(times) != len(temperatures) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(times), len(temperatures))
	}
	if len(times) < 2 {
		return ErrTooFewSamples
	}
	return nil
}

// IgnitionDelay returns the midpoint of the sample interval with the largest
// dT/dt.
func IgnitionDelay(times, temperatures []float64) (float64, error) {
	if err := check(times, temperatures); err != nil {
		return 0, err
	}

	slopes := make([]float64, len(times)-1)
	for i := range slopes {
		dt := times[i+1] - times[i]
		if dt <= 0 {
			return 0, fmt.Errorf("analysis: times not increasing at sample %d", i+1)
		}
		slopes[i] = (temperatures[i+1] - temperatures[i]) / dt
	}

	i := floats.MaxIdx(slopes)
	if slopes[i] <= 0 {
		return 0, ErrNoIgnition
	}
	return 0.5 * (times[i] + times[i+1]), nil
}

// TemperatureRise returns max(T) - T[0].
func TemperatureRise(temperatures []float64) float64 {
	if len(temperatures) == 0 {
		return 0
	}
	return floats.Max(temperatures) - temperatures[0]
}

// Equilibrated reports whether the temperature over the last tenth of the
// run varies by less than tol relative to the final temperature.
func Equilibrated(times, temperatures []float64, tol float64) (bool, error) {
	if err := check(times, temperatures); err != nil {
		return false, err
	}

	n := len(times)
	end := times[n-1]
	start := end - 0.1*(end-times[0])

	window := make([]float64, 0, n)
	for i := n - 1; i >= 0 && times[i] >= start; i-- {
		window = append(window, temperatures[i])
	}
	if len(window) < 2 {
		window = temperatures[n-2:]
	}

	final := temperatures[n-1]
	spread := floats.Max(window) - floats.Min(window)
	return spread <= tol*math.Abs(final), nil
}
