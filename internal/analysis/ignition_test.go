package analysis

import (
	"errors"
	"math"
	"testing"
)

// sigmoid mimics a thermal runaway centred at tIgn.
func sigmoid(n int, tIgn float64) ([]float64, []float64) {
	times := make([]float64, n)
	temps := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 1e-4
		temps[i] = 1000 + 1500/(1+math.Exp(-(times[i]-tIgn)/2e-4))
	}
	return times, temps
}

func TestIgnitionDelay(t *testing.T) {
	times, temps := sigmoid(201, 0.01)

	delay, err := IgnitionDelay(times, temps)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(delay-0.01) > 1e-4 {
		t.Errorf("expected delay near 0.01, got %g", delay)
	}
}

func TestIgnitionDelayErrors(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		temps []float64
		want  error
	}{
		{"too few", []float64{0}, []float64{1000}, ErrTooFewSamples},
		{"mismatch", []float64{0, 1}, []float64{1000}, ErrLengthMismatch},
		{"no rise", []float64{0, 1, 2}, []float64{1000, 1000, 999}, ErrNoIgnition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IgnitionDelay(tt.times, tt.temps)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIgnitionDelayRejectsUnorderedTimes(t *testing.T) {
	_, err := IgnitionDelay([]float64{0, 1, 1}, []float64{1000, 1100, 1200})
	if err == nil {
		t.Error("expected error for repeated time")
	}
}

func TestTemperatureRise(t *testing.T) {
	_, temps := sigmoid(201, 0.01)

	rise := TemperatureRise(temps)
	if math.Abs(rise-1500) > 1 {
		t.Errorf("expected rise near 1500 K, got %f", rise)
	}
	if TemperatureRise(nil) != 0 {
		t.Error("expected zero rise for empty history")
	}
}

func TestEquilibrated(t *testing.T) {
	times, temps := sigmoid(201, 0.01)

	ok, err := Equilibrated(times, temps, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected burnt state to be equilibrated")
	}

	times, temps = sigmoid(201, 0.019)
	ok, err = Equilibrated(times, temps, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected igniting state not to be equilibrated")
	}
}
