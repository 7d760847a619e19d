package kinetics

import (
	"fmt"
	"math"

	"github.com/san-kum/batchreactor/internal/thermo"
	"gonum.org/v1/gonum/mat"
)

// Map evaluates the net rates of a reaction set over the species of a
// thermodynamic map. It holds no mutable state.
type Map struct {
	thermo    *thermo.Map
	reactions []Reaction
	// nu is the net stoichiometric matrix, species x reactions.
	nu *mat.Dense
	// deltaN is the change in moles of each reaction.
	deltaN []float64
}

// NewMap validates the reactions against th and builds the
// stoichiometric matrix. Duplicate participants on one side are summed.
func NewMap(th *thermo.Map, reactions []Reaction) (*Map, error) {
	n := th.NumberOfSpecies()
	m := &Map{
		thermo:    th,
		reactions: make([]Reaction, len(reactions)),
		deltaN:    make([]float64, len(reactions)),
	}
	if len(reactions) > 0 {
		m.nu = mat.NewDense(n, len(reactions), nil)
	}
	for j, r := range reactions {
		if err := r.validate(n); err != nil {
			return nil, fmt.Errorf("reaction %d: %w", j, err)
		}
		r.Reactants = merge(r.Reactants)
		r.Products = merge(r.Products)
		for _, p := range r.Reactants {
			m.nu.Set(p.Species, j, m.nu.At(p.Species, j)-p.Coefficient)
			m.deltaN[j] -= p.Coefficient
		}
		for _, p := range r.Products {
			m.nu.Set(p.Species, j, m.nu.At(p.Species, j)+p.Coefficient)
			m.deltaN[j] += p.Coefficient
		}
		m.reactions[j] = r
	}
	return m, nil
}

func (m *Map) NumberOfSpecies() int   { return m.thermo.NumberOfSpecies() }
func (m *Map) NumberOfReactions() int { return len(m.reactions) }

func (m *Map) Reaction(j int) Reaction { return m.reactions[j] }

// EquilibriumConstant returns Kc of reaction j in concentration units.
func (m *Map) EquilibriumConstant(j int, t float64) float64 {
	r := &m.reactions[j]
	dg := 0.0
	for _, p := range r.Products {
		dg += p.Coefficient * m.thermo.StandardGibbs(p.Species, t)
	}
	for _, p := range r.Reactants {
		dg -= p.Coefficient * m.thermo.StandardGibbs(p.Species, t)
	}
	kp := math.Exp(-dg / (thermo.R * t))
	return kp * math.Pow(thermo.PAtm/(thermo.R*t), m.deltaN[j])
}

type rateConstants struct {
	kf, kr float64
}

func (m *Map) rateConstants(j int, t float64) rateConstants {
	r := &m.reactions[j]
	k := rateConstants{kf: r.Forward.Rate(t)}
	if !r.Reversible {
		return k
	}
	if r.Reverse != nil {
		k.kr = r.Reverse.Rate(t)
	} else if kc := m.EquilibriumConstant(j, t); kc > 0 {
		k.kr = k.kf / kc
	}
	return k
}

func (m *Map) thirdBody(r *Reaction, c []float64) float64 {
	if !r.ThirdBody {
		return 1
	}
	sum := 0.0
	for i, ci := range c {
		eff, ok := r.Efficiencies[i]
		if !ok {
			eff = 1
		}
		sum += eff * ci
	}
	return sum
}

// ReactionRates writes the net rate of progress of every reaction into rr.
func (m *Map) ReactionRates(s thermo.State, c, rr []float64) {
	for j := range m.reactions {
		r := &m.reactions[j]
		k := m.rateConstants(j, s.T)
		q := k.kf * massAction(c, r.Reactants)
		if k.kr != 0 {
			q -= k.kr * massAction(c, r.Products)
		}
		rr[j] = m.thirdBody(r, c) * q
	}
}

// FormationRates writes the net formation rate of every species into r.
func (m *Map) FormationRates(s thermo.State, c, r []float64) {
	for i := range r {
		r[i] = 0
	}
	if len(m.reactions) == 0 {
		return
	}
	rr := make([]float64, len(m.reactions))
	m.ReactionRates(s, c, rr)
	mat.NewVecDense(len(r), r).MulVec(m.nu, mat.NewVecDense(len(rr), rr))
}

// FormationRateDerivatives writes dR_i/dc_k at fixed temperature and
// pressure into drdc, which must be N x N.
func (m *Map) FormationRateDerivatives(s thermo.State, c []float64, drdc *mat.Dense) {
	drdc.Zero()
	n := len(c)
	dq := make([]float64, n)
	for j := range m.reactions {
		r := &m.reactions[j]
		k := m.rateConstants(j, s.T)
		mConc := m.thirdBody(r, c)

		var net float64
		if r.ThirdBody {
			net = k.kf * massAction(c, r.Reactants)
			if k.kr != 0 {
				net -= k.kr * massAction(c, r.Products)
			}
		}

		for kk := 0; kk < n; kk++ {
			d := k.kf * massActionDerivative(c, r.Reactants, kk)
			if k.kr != 0 {
				d -= k.kr * massActionDerivative(c, r.Products, kk)
			}
			d *= mConc
			if r.ThirdBody {
				eff, ok := r.Efficiencies[kk]
				if !ok {
					eff = 1
				}
				d += eff * net
			}
			dq[kk] = d
		}

		for i := 0; i < n; i++ {
			nu := m.nu.At(i, j)
			if nu == 0 {
				continue
			}
			for kk := 0; kk < n; kk++ {
				if dq[kk] != 0 {
					drdc.Set(i, kk, drdc.At(i, kk)+nu*dq[kk])
				}
			}
		}
	}
}
