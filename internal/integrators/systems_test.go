package integrators

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) NumberOfEquations() int { return 2 }

func (h *harmonicOscillator) Derivatives(t float64, x, dxdt []float64) error {
	dxdt[0] = x[1]
	dxdt[1] = -x[0]
	return nil
}

func (h *harmonicOscillator) Energy(x []float64) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

// linearDecay is dx/dt = -lambda x, stiff for large lambda.
type linearDecay struct {
	lambda float64
}

func (d *linearDecay) NumberOfEquations() int { return 1 }

func (d *linearDecay) Derivatives(t float64, x, dxdt []float64) error {
	dxdt[0] = -d.lambda * x[0]
	return nil
}

func (d *linearDecay) Jacobian(t float64, x, dfdt []float64, dfdx *mat.Dense) error {
	dfdt[0] = 0
	dfdx.Set(0, 0, -d.lambda)
	return nil
}

var errBroken = errors.New("broken system")

type brokenSystem struct{}

func (b *brokenSystem) NumberOfEquations() int { return 1 }

func (b *brokenSystem) Derivatives(t float64, x, dxdt []float64) error {
	return errBroken
}

func (b *brokenSystem) Jacobian(t float64, x, dfdt []float64, dfdx *mat.Dense) error {
	return errBroken
}
