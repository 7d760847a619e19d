package reactor

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateState indicates a concentration vector whose clipped total
	// is not positive (or that holds NaN/Inf), so mole fractions are undefined.
	ErrDegenerateState = errors.New("reactor: degenerate state")

	// ErrUninitializedConfiguration indicates an evaluation before the initial
	// temperature, initial pressure and internal energy were all set.
	ErrUninitializedConfiguration = errors.New("reactor: configuration not initialized")

	// ErrDimensionMismatch indicates input or output vectors whose length is
	// not the number of species.
	ErrDimensionMismatch = errors.New("reactor: dimension mismatch")

	// ErrClosureNonConvergence is wrapped by ClosureNonConvergenceWarning.
	ErrClosureNonConvergence = errors.New("reactor: closure did not converge")
)

// DegenerateStateError carries the offending concentration vector summary.
// Index is the first non-finite entry, or -1 when the total is the problem.
type DegenerateStateError struct {
	Index              int
	TotalConcentration float64
}

func (e *DegenerateStateError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%v: non-finite concentration at index %d", ErrDegenerateState, e.Index)
	}
	return fmt.Sprintf("%v: total concentration %g kmol/m3", ErrDegenerateState, e.TotalConcentration)
}

func (e *DegenerateStateError) Unwrap() error { return ErrDegenerateState }

// ClosureNonConvergenceWarning reports a closure that used its whole
// iteration budget. It is returned as an error only by strict models.
type ClosureNonConvergenceWarning struct {
	Iterations int
	Residual   float64
}

func (w *ClosureNonConvergenceWarning) Error() string {
	return fmt.Sprintf("%v after %d iterations (relative pressure change %.3e)", ErrClosureNonConvergence, w.Iterations, w.Residual)
}

func (w *ClosureNonConvergenceWarning) Unwrap() error { return ErrClosureNonConvergence }
