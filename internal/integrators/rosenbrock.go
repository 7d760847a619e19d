package integrators

import (
	"fmt"

	"github.com/san-kum/batchreactor/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Rosenbrock is the linearly implicit Euler method
//
//	(I - dt J) k = f(t, x) + dt df/dt,  x' = x + dt k
//
// which is L-stable and needs one Jacobian and one LU factorization per
// step. The system must implement dynamo.JacobianSystem.
type Rosenbrock struct {
	n    int
	f    dynamo.State
	dfdt dynamo.State
	jac  *mat.Dense
	iter *mat.Dense
	lu   mat.LU
	k    *mat.VecDense
}

func NewRosenbrock() *Rosenbrock {
	return &Rosenbrock{}
}

func (r *Rosenbrock) ensureScratch(n int) {
	if r.n != n {
		r.n = n
		r.f = make(dynamo.State, n)
		r.dfdt = make(dynamo.State, n)
		r.jac = mat.NewDense(n, n, nil)
		r.iter = mat.NewDense(n, n, nil)
		r.k = mat.NewVecDense(n, nil)
	}
}

func (r *Rosenbrock) Step(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	js, ok := sys.(dynamo.JacobianSystem)
	if !ok {
		return nil, dynamo.ErrNoJacobian
	}
	n := len(x)
	r.ensureScratch(n)

	if err := js.Derivatives(t, x, r.f); err != nil {
		return nil, err
	}
	if err := js.Jacobian(t, x, r.dfdt, r.jac); err != nil {
		return nil, err
	}

	// I - dt J
	r.iter.Scale(-dt, r.jac)
	for i := 0; i < n; i++ {
		r.iter.Set(i, i, 1+r.iter.At(i, i))
	}
	r.lu.Factorize(r.iter)
	if cond := r.lu.Cond(); cond > 1e14 {
		return nil, fmt.Errorf("%w: condition number %.3g", dynamo.ErrSingularMatrix, cond)
	}

	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		rhs[i] = r.f[i] + dt*r.dfdt[i]
	}
	if err := r.lu.SolveVecTo(r.k, false, mat.NewVecDense(n, rhs)); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrSingularMatrix, err)
	}

	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt*r.k.AtVec(i)
	}
	return result, nil
}
