package reactor_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/san-kum/batchreactor/internal/reactor"
	"github.com/san-kum/batchreactor/internal/thermo"
	"gonum.org/v1/gonum/mat"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func scaled(c []float64, k float64) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = k * v
	}
	return out
}

var _ = Describe("Model", func() {
	Describe("configuration", func() {
		It("reports one equation per species", func() {
			th, km := temperatureFreeMechanism()
			Expect(reactor.New(th, km).NumberOfEquations()).To(Equal(3))
		})

		It("fails fast before the kinetics map is touched when nothing is set", func() {
			th, km := isomerization()
			spy := &countingKinetics{KineticsMap: km}
			m := reactor.New(th, spy)

			err := m.Derivatives(0, []float64{0.01, 0.0}, make([]float64, 2))
			Expect(err).To(MatchError(reactor.ErrUninitializedConfiguration))

			err = m.Jacobian(0, []float64{0.01, 0.0}, make([]float64, 2), mat.NewDense(2, 2, nil))
			Expect(err).To(MatchError(reactor.ErrUninitializedConfiguration))
			Expect(spy.rates + spy.derivatives).To(BeZero())
		})

		DescribeTable("rejects partial or invalid configuration",
			func(setup func(m *reactor.Model)) {
				th, km := isomerization()
				m := reactor.New(th, km)
				setup(m)
				_, err := m.Close([]float64{0.01, 0.01})
				Expect(err).To(MatchError(reactor.ErrUninitializedConfiguration))
			},
			Entry("internal energy missing", func(m *reactor.Model) {
				m.SetInitialTemperature(t0)
				m.SetInitialPressure(p0)
			}),
			Entry("pressure missing", func(m *reactor.Model) {
				m.SetInitialTemperature(t0)
				m.SetInternalEnergy(1e6)
			}),
			Entry("non-positive temperature", func(m *reactor.Model) {
				m.SetInitialTemperature(0)
				m.SetInitialPressure(p0)
				m.SetInternalEnergy(1e6)
			}),
			Entry("NaN internal energy", func(m *reactor.Model) {
				m.SetInitialTemperature(t0)
				m.SetInitialPressure(p0)
				m.SetInternalEnergy(math.NaN())
			}),
		)

		It("checks configuration before the concentration vector", func() {
			th, km := isomerization()
			_, err := reactor.New(th, km).Close([]float64{0, 0})
			Expect(err).To(MatchError(reactor.ErrUninitializedConfiguration))
		})
	})

	Describe("state reconstruction", func() {
		It("produces mole fractions summing to one", func() {
			th, km := temperatureFreeMechanism()
			m, _ := configured(th, km, []float64{0.5, 0.3, 0.2})
			rng := rand.New(rand.NewSource(7))

			for i := 0; i < 200; i++ {
				c := []float64{rng.Float64()*0.02 - 0.001, rng.Float64() * 0.02, rng.Float64()*0.02 - 0.005}
				comp, err := m.Reconstruct(c)
				Expect(err).NotTo(HaveOccurred())

				sum := 0.0
				for _, x := range comp.MoleFractions {
					Expect(x).To(BeNumerically(">=", 0))
					sum += x
				}
				Expect(sum).To(BeNumerically("~", 1.0, 1e-12))
			}
		})

		It("clips negative concentrations without touching the input", func() {
			th, km := temperatureFreeMechanism()
			m, _ := configured(th, km, []float64{0.5, 0.3, 0.2})
			c := []float64{0.004, -1e-9, 0.006}

			comp, err := m.Reconstruct(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal([]float64{0.004, -1e-9, 0.006}))
			Expect(comp.Concentrations).To(Equal([]float64{0.004, 0, 0.006}))
			Expect(comp.TotalConcentration).To(BeNumerically("~", 0.01, 1e-15))
			Expect(comp.MoleFractions[1]).To(BeZero())
			Expect(comp.MolecularWeight).To(BeNumerically("~", 0.4*20+0.6*60, 1e-12))
		})

		DescribeTable("reports degenerate states without calling the kinetics map",
			func(c []float64, index int) {
				th, km := isomerization()
				spy := &countingKinetics{KineticsMap: km}
				m, _ := configured(th, spy, []float64{1, 0})

				err := m.Derivatives(0, c, make([]float64, 2))
				Expect(err).To(MatchError(reactor.ErrDegenerateState))

				var dse *reactor.DegenerateStateError
				Expect(errors.As(err, &dse)).To(BeTrue())
				Expect(dse.Index).To(Equal(index))

				err = m.Jacobian(0, c, make([]float64, 2), mat.NewDense(2, 2, nil))
				Expect(err).To(MatchError(reactor.ErrDegenerateState))
				Expect(spy.rates + spy.derivatives).To(BeZero())
			},
			Entry("all zeros", []float64{0, 0}, -1),
			Entry("all negative", []float64{-1e-6, -2e-6}, -1),
			Entry("NaN entry", []float64{0.01, math.NaN()}, 1),
			Entry("infinite entry", []float64{math.Inf(1), 0.01}, 0),
		)

		It("rejects vectors of the wrong length", func() {
			th, km := isomerization()
			m, c := configured(th, km, []float64{1, 0})

			Expect(m.Derivatives(0, []float64{0.01}, make([]float64, 2))).To(MatchError(reactor.ErrDimensionMismatch))
			Expect(m.Derivatives(0, c, make([]float64, 3))).To(MatchError(reactor.ErrDimensionMismatch))
			Expect(m.Jacobian(0, c, make([]float64, 2), mat.NewDense(3, 3, nil))).To(MatchError(reactor.ErrDimensionMismatch))
			Expect(m.Jacobian(0, c, make([]float64, 2), nil)).To(MatchError(reactor.ErrDimensionMismatch))
		})
	})

	Describe("thermodynamic closure", func() {
		It("converges in one iteration for an inert gas at its initial state", func() {
			th, km := inertNitrogen()
			m, c := configured(th, km, []float64{1})

			cs, err := m.Close(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(cs.Closure.Converged).To(BeTrue())
			Expect(cs.Closure.Iterations).To(Equal(1))
			Expect(cs.State.T).To(BeNumerically("~", t0, 1e-4*t0))
			Expect(cs.State.P).To(BeNumerically("~", p0, 1e-4*p0))
		})

		It("recovers the configured internal energy and the ideal-gas pressure", func() {
			th, km := isomerization()
			m, c := configured(th, km, []float64{1, 0})

			// same atoms, partly converted: the heat release raises T
			mixed := []float64{0.6 * c[0], 0.4 * c[0]}
			cs, err := m.Close(mixed)
			Expect(err).NotTo(HaveOccurred())
			Expect(cs.Closure.Converged).To(BeTrue())
			Expect(cs.State.T).To(BeNumerically(">", t0))

			u := th.MassInternalEnergy(cs.State.T, cs.MoleFractions)
			Expect(u).To(BeNumerically("~", m.InternalEnergy(), 1e-3*math.Abs(m.InternalEnergy())))
			Expect(cs.State.P).To(BeNumerically("~", cs.TotalConcentration*thermo.R*cs.State.T, 1e-9*cs.State.P))
		})

		It("keeps temperature invariant under uniform scaling while pressure and rates follow", func() {
			th, km := isomerization()
			m, c := configured(th, km, []float64{0.7, 0.3},
				reactor.WithClosureTolerance(1e-12),
				reactor.WithMaxClosureIterations(60),
			)
			const k = 3.0

			base, err := m.Close(c)
			Expect(err).NotTo(HaveOccurred())
			big, err := m.Close(scaled(c, k))
			Expect(err).NotTo(HaveOccurred())

			Expect(big.State.T).To(BeNumerically("~", base.State.T, 1e-9*base.State.T))
			Expect(big.State.P).To(BeNumerically("~", k*base.State.P, 1e-9*k*base.State.P))
			Expect(big.TotalConcentration).To(BeNumerically("~", k*base.TotalConcentration, 1e-12))

			r1 := make([]float64, 2)
			rk := make([]float64, 2)
			Expect(m.Derivatives(0, c, r1)).To(Succeed())
			Expect(m.Derivatives(0, scaled(c, k), rk)).To(Succeed())
			for i := range r1 {
				Expect(rk[i]).To(BeNumerically("~", k*r1[i], 1e-8*math.Abs(k*r1[i])))
			}
		})

		It("counts and logs a closure that runs out of iterations", func() {
			th, km := isomerization()
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			m, c := configured(th, km, []float64{1, 0},
				reactor.WithMaxClosureIterations(1),
				reactor.WithLogger(logger),
			)
			m.SetInitialPressure(2 * p0)

			cs, err := m.Close(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(cs.Closure.Converged).To(BeFalse())
			Expect(cs.Closure.Iterations).To(Equal(1))
			Expect(cs.Closure.Err()).To(MatchError(reactor.ErrClosureNonConvergence))

			Expect(m.Derivatives(0, c, make([]float64, 2))).To(Succeed())
			Expect(m.NonConvergedClosures()).To(BeEquivalentTo(2))
			Expect(buf.String()).To(ContainSubstring("closure did not converge"))
		})

		It("solves without recording through Closure", func() {
			th, km := isomerization()
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			m, c := configured(th, km, []float64{1, 0},
				reactor.WithMaxClosureIterations(1),
				reactor.WithStrictClosure(),
				reactor.WithLogger(logger),
			)
			m.SetInitialPressure(2 * p0)

			quiet, err := m.Closure(c)
			Expect(err).NotTo(HaveOccurred())
			Expect(quiet.Closure.Converged).To(BeFalse())
			Expect(m.NonConvergedClosures()).To(BeZero())
			Expect(buf.Len()).To(BeZero())

			loud, err := m.Close(c)
			Expect(err).To(MatchError(reactor.ErrClosureNonConvergence))
			Expect(loud.State).To(Equal(quiet.State))
			Expect(m.NonConvergedClosures()).To(BeEquivalentTo(1))
		})

		It("fails the call on non-convergence when strict", func() {
			th, km := isomerization()
			spy := &countingKinetics{KineticsMap: km}
			m, c := configured(th, spy, []float64{1, 0},
				reactor.WithMaxClosureIterations(1),
				reactor.WithStrictClosure(),
			)
			m.SetInitialPressure(2 * p0)

			err := m.Derivatives(0, c, make([]float64, 2))
			var w *reactor.ClosureNonConvergenceWarning
			Expect(errors.As(err, &w)).To(BeTrue())
			Expect(w.Iterations).To(Equal(1))
			Expect(spy.rates).To(BeZero())
		})
	})

	Describe("evaluation", func() {
		var (
			m *reactor.Model
			c []float64
		)

		BeforeEach(func() {
			th, km := temperatureFreeMechanism()
			m, c = configured(th, km, []float64{0.5, 0.3, 0.2})
		})

		It("is idempotent", func() {
			a := make([]float64, 3)
			b := make([]float64, 3)
			Expect(m.Derivatives(0, c, a)).To(Succeed())
			Expect(m.Derivatives(0, c, b)).To(Succeed())
			Expect(a).To(Equal(b))

			ja := mat.NewDense(3, 3, nil)
			jb := mat.NewDense(3, 3, nil)
			Expect(m.Jacobian(0, c, make([]float64, 3), ja)).To(Succeed())
			Expect(m.Jacobian(0, c, make([]float64, 3), jb)).To(Succeed())
			Expect(mat.Equal(ja, jb)).To(BeTrue())
		})

		It("ignores the time argument", func() {
			a := make([]float64, 3)
			b := make([]float64, 3)
			Expect(m.Derivatives(0, c, a)).To(Succeed())
			Expect(m.Derivatives(123.4, c, b)).To(Succeed())
			Expect(a).To(Equal(b))
		})

		It("writes an exactly zero time derivative", func() {
			dfdt := []float64{1.5, -2, math.NaN()}
			Expect(m.Jacobian(0, c, dfdt, mat.NewDense(3, 3, nil))).To(Succeed())
			Expect(dfdt).To(Equal([]float64{0, 0, 0}))
		})

		It("matches a finite-difference Jacobian", func() {
			n := len(c)
			jac := mat.NewDense(n, n, nil)
			Expect(m.Jacobian(0, c, make([]float64, n), jac)).To(Succeed())

			base := make([]float64, n)
			Expect(m.Derivatives(0, c, base)).To(Succeed())
			scale := mat.Norm(jac, math.Inf(1))

			for j := 0; j < n; j++ {
				delta := 1e-6 * c[j]
				perturbed := append([]float64(nil), c...)
				perturbed[j] += delta
				f := make([]float64, n)
				Expect(m.Derivatives(0, perturbed, f)).To(Succeed())

				for i := 0; i < n; i++ {
					fd := (f[i] - base[i]) / delta
					Expect(fd).To(BeNumerically("~", jac.At(i, j), 1e-5*scale), "column %d row %d", j, i)
				}
			}
		})

		It("gives the same answer through a shared closed state", func() {
			cs, err := m.Close(c)
			Expect(err).NotTo(HaveOccurred())

			direct := make([]float64, 3)
			shared := make([]float64, 3)
			Expect(m.Derivatives(0, c, direct)).To(Succeed())
			Expect(m.DerivativesAt(cs, shared)).To(Succeed())
			Expect(shared).To(Equal(direct))

			jd := mat.NewDense(3, 3, nil)
			js := mat.NewDense(3, 3, nil)
			Expect(m.Jacobian(0, c, make([]float64, 3), jd)).To(Succeed())
			Expect(m.JacobianAt(cs, make([]float64, 3), js)).To(Succeed())
			Expect(mat.Equal(jd, js)).To(BeTrue())
		})

		It("is safe for concurrent callers", func() {
			want := make([]float64, 3)
			Expect(m.Derivatives(0, c, want)).To(Succeed())

			var wg sync.WaitGroup
			mismatches := make(chan []float64, 64)
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					got := make([]float64, 3)
					for i := 0; i < 50; i++ {
						if err := m.Derivatives(0, c, got); err != nil {
							panic(err)
						}
						for k := range got {
							if got[k] != want[k] {
								mismatches <- append([]float64(nil), got...)
								return
							}
						}
					}
				}()
			}
			wg.Wait()
			close(mismatches)
			Expect(mismatches).To(BeEmpty())
		})
	})
})
