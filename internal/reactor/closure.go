package reactor

import (
	"fmt"
	"math"

	"github.com/san-kum/batchreactor/internal/thermo"
)

// ClosureResult describes how the temperature/pressure closure ended.
type ClosureResult struct {
	Iterations int
	Converged  bool
	// Residual is the last relative pressure change |P - Pold| / P.
	Residual float64
}

// Err returns a *ClosureNonConvergenceWarning when the closure exhausted its
// budget, nil otherwise.
func (r ClosureResult) Err() error {
	if r.Converged {
		return nil
	}
	return &ClosureNonConvergenceWarning{Iterations: r.Iterations, Residual: r.Residual}
}

// ClosedState is a reconstructed composition together with the temperature
// and pressure consistent with the model internal energy.
type ClosedState struct {
	Composition
	State   thermo.State
	Closure ClosureResult
}

// Close reconstructs c and recovers T and P by successive substitution:
// H = U + P/(cTot MW), T = h^-1(H MW), P = cTot R T, until the relative
// pressure change drops below the tolerance or the budget is spent.
// A closure that spends its budget is counted in NonConvergedClosures and
// fails under WithStrictClosure.
func (m *Model) Close(c []float64) (ClosedState, error) {
	cs, err := m.solve(c)
	if err != nil || cs.Closure.Converged {
		return cs, err
	}
	m.nonConverged.Add(1)
	m.logger.Debug("closure did not converge",
		"iterations", cs.Closure.Iterations,
		"residual", cs.Closure.Residual,
		"T", cs.State.T,
		"P", cs.State.P,
	)
	if m.strictClosure {
		return cs, cs.Closure.Err()
	}
	return cs, nil
}

// Closure solves the same closure as Close but records nothing: the
// counter, the log and strict mode are left alone. Callers inspect
// ClosedState.Closure instead.
func (m *Model) Closure(c []float64) (ClosedState, error) {
	return m.solve(c)
}

func (m *Model) solve(c []float64) (ClosedState, error) {
	if err := m.checkConfiguration(); err != nil {
		return ClosedState{}, err
	}
	comp, err := m.Reconstruct(c)
	if err != nil {
		return ClosedState{}, err
	}

	cs := ClosedState{Composition: comp}
	p := m.pInitial
	t := m.tInitial
	density := comp.TotalConcentration * comp.MolecularWeight

	for i := 0; i < m.maxClosureIterations; i++ {
		pOld := p
		h := m.u + p/density
		t, err = m.thermo.TemperatureFromEnthalpyAndMoleFractions(h*comp.MolecularWeight, p, comp.MoleFractions, t)
		if err != nil {
			return ClosedState{}, fmt.Errorf("reactor: closure iteration %d: %w", i+1, err)
		}
		p = comp.TotalConcentration * thermo.R * t

		cs.Closure.Iterations = i + 1
		cs.Closure.Residual = math.Abs(p-pOld) / p
		if cs.Closure.Residual < m.closureTolerance {
			cs.Closure.Converged = true
			break
		}
	}
	cs.State = thermo.State{T: t, P: p}
	return cs, nil
}
