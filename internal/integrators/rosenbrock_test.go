package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/batchreactor/internal/dynamo"
)

func TestRosenbrockStiffDecay(t *testing.T) {
	sys := &linearDecay{lambda: 1e4}
	integ := NewRosenbrock()

	x := dynamo.State{1.0}
	dt := 0.01
	prev := x[0]
	var err error
	for i := 0; i < 100; i++ {
		x, err = integ.Step(sys, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatal(err)
		}
		if x[0] < 0 || x[0] > prev {
			t.Fatalf("step %d: expected monotone decay, got %g after %g", i, x[0], prev)
		}
		prev = x[0]
	}

	// explicit euler diverges at dt*lambda = 100
	xe, err := NewEuler().Step(sys, dynamo.State{1.0}, 0, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(xe[0]) < 1 {
		t.Errorf("expected explicit euler to amplify, got %g", xe[0])
	}
}

func TestRosenbrockAccuracy(t *testing.T) {
	sys := &linearDecay{lambda: 1}
	integ := NewRosenbrock()

	x := dynamo.State{1.0}
	dt := 1e-3
	var err error
	for i := 0; i < 1000; i++ {
		x, err = integ.Step(sys, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatal(err)
		}
	}

	if diff := math.Abs(x[0] - math.Exp(-1)); diff > 1e-3 {
		t.Errorf("error %e too large", diff)
	}
}

func TestRosenbrockNeedsJacobian(t *testing.T) {
	_, err := NewRosenbrock().Step(&harmonicOscillator{}, dynamo.State{1, 0}, 0, 0.1)
	if !errors.Is(err, dynamo.ErrNoJacobian) {
		t.Errorf("expected ErrNoJacobian, got %v", err)
	}
}
