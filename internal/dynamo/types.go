package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an ODE right-hand side. Derivatives writes f(x, t) into dxdt,
// which has the same length as x.
type System interface {
	NumberOfEquations() int
	Derivatives(t float64, x, dxdt []float64) error
}

// JacobianSystem is a System that can also return df/dt and df/dx.
type JacobianSystem interface {
	System
	Jacobian(t float64, x, dfdt []float64, dfdx *mat.Dense) error
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) (State, error)
}

// AdaptiveIntegrator returns the next suggested step size. A step whose error
// exceeds tol is reported with ErrStepRejected and x unchanged.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1e-5,
		Duration:      0.01,
		Tolerance:     1e-6,
		MaxDt:         1e-3,
		MinDt:         1e-12,
		Adaptive:      false,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
}
