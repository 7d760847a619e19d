package reactor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Derivatives writes the species formation rates at c into dcdt. The
// system is autonomous; t is ignored.
func (m *Model) Derivatives(t float64, c, dcdt []float64) error {
	if len(dcdt) != m.n {
		return fmt.Errorf("%w: derivative vector of length %d for %d species", ErrDimensionMismatch, len(dcdt), m.n)
	}
	cs, err := m.Close(c)
	if err != nil {
		return err
	}
	return m.DerivativesAt(cs, dcdt)
}

// DerivativesAt evaluates formation rates at an already closed state.
func (m *Model) DerivativesAt(cs ClosedState, dcdt []float64) error {
	if len(dcdt) != m.n || len(cs.Concentrations) != m.n {
		return fmt.Errorf("%w: derivative vector of length %d for %d species", ErrDimensionMismatch, len(dcdt), m.n)
	}
	m.kinetics.FormationRates(cs.State, cs.Concentrations, dcdt)
	return nil
}

// Jacobian writes dR/dc at the closed state of c into dfdc and zeroes dfdt.
// Temperature and pressure are held fixed in the derivatives.
func (m *Model) Jacobian(t float64, c, dfdt []float64, dfdc *mat.Dense) error {
	if err := m.checkJacobianShape(dfdt, dfdc); err != nil {
		return err
	}
	cs, err := m.Close(c)
	if err != nil {
		return err
	}
	return m.JacobianAt(cs, dfdt, dfdc)
}

// JacobianAt evaluates the kinetic Jacobian at an already closed state.
func (m *Model) JacobianAt(cs ClosedState, dfdt []float64, dfdc *mat.Dense) error {
	if err := m.checkJacobianShape(dfdt, dfdc); err != nil {
		return err
	}
	if len(cs.Concentrations) != m.n {
		return fmt.Errorf("%w: closed state has %d species, model %d", ErrDimensionMismatch, len(cs.Concentrations), m.n)
	}
	for i := range dfdt {
		dfdt[i] = 0
	}
	m.kinetics.FormationRateDerivatives(cs.State, cs.Concentrations, dfdc)
	return nil
}

func (m *Model) checkJacobianShape(dfdt []float64, dfdc *mat.Dense) error {
	if len(dfdt) != m.n {
		return fmt.Errorf("%w: dfdt of length %d for %d species", ErrDimensionMismatch, len(dfdt), m.n)
	}
	if dfdc == nil {
		return fmt.Errorf("%w: nil jacobian matrix", ErrDimensionMismatch)
	}
	if r, c := dfdc.Dims(); r != m.n || c != m.n {
		return fmt.Errorf("%w: jacobian is %dx%d for %d species", ErrDimensionMismatch, r, c, m.n)
	}
	return nil
}
