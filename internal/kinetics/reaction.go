package kinetics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/batchreactor/internal/thermo"
)

var (
	ErrEmptyReaction  = errors.New("kinetics: reaction has no reactants or no products")
	ErrUnknownSpecies = errors.New("kinetics: species index out of range")
	ErrInvalidRate    = errors.New("kinetics: invalid rate parameters")
	ErrInvalidOrder   = errors.New("kinetics: stoichiometric coefficients must be positive")
)

// Arrhenius is k = A T^Beta exp(-Ea / (R T)) with Ea in J/kmol.
type Arrhenius struct {
	A    float64
	Beta float64
	Ea   float64
}

func (a Arrhenius) Rate(t float64) float64 {
	k := a.A
	if a.Beta != 0 {
		k *= math.Pow(t, a.Beta)
	}
	if a.Ea != 0 {
		k *= math.Exp(-a.Ea / (thermo.R * t))
	}
	return k
}

// Participant is a species index and its stoichiometric coefficient, which
// is also its reaction order.
type Participant struct {
	Species     int
	Coefficient float64
}

type Reaction struct {
	Equation   string
	Reactants  []Participant
	Products   []Participant
	Forward    Arrhenius
	Reversible bool
	// Reverse overrides the equilibrium-derived reverse rate constant.
	Reverse *Arrhenius
	// ThirdBody multiplies the rate by [M] = sum(eff_i c_i); species missing
	// from Efficiencies count with efficiency 1.
	ThirdBody    bool
	Efficiencies map[int]float64
}

func (r *Reaction) validate(n int) error {
	if len(r.Reactants) == 0 || len(r.Products) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyReaction, r.Equation)
	}
	for _, side := range [][]Participant{r.Reactants, r.Products} {
		for _, p := range side {
			if p.Species < 0 || p.Species >= n {
				return fmt.Errorf("%w: %s: %d", ErrUnknownSpecies, r.Equation, p.Species)
			}
			if !(p.Coefficient > 0) {
				return fmt.Errorf("%w: %s", ErrInvalidOrder, r.Equation)
			}
		}
	}
	if !(r.Forward.A >= 0) {
		return fmt.Errorf("%w: %s: negative pre-exponential factor", ErrInvalidRate, r.Equation)
	}
	if r.Reverse != nil && !(r.Reverse.A >= 0) {
		return fmt.Errorf("%w: %s: negative reverse pre-exponential factor", ErrInvalidRate, r.Equation)
	}
	for i := range r.Efficiencies {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %s: efficiency for %d", ErrUnknownSpecies, r.Equation, i)
		}
	}
	return nil
}

// merge sums duplicated species so each index appears once per side.
func merge(parts []Participant) []Participant {
	out := make([]Participant, 0, len(parts))
	for _, p := range parts {
		found := false
		for i := range out {
			if out[i].Species == p.Species {
				out[i].Coefficient += p.Coefficient
				found = true
				break
			}
		}
		if !found {
			out = append(out, p)
		}
	}
	return out
}

// massAction returns prod_i c_i^nu_i.
func massAction(c []float64, parts []Participant) float64 {
	prod := 1.0
	for _, p := range parts {
		prod *= power(c[p.Species], p.Coefficient)
	}
	return prod
}

// DerivativeFloor is the concentration in kmol/m3 at which
// c^(nu-1) is evaluated for orders nu < 1 when c is below it. The
// derivative is singular at c = 0 for those orders.
const DerivativeFloor = 1e-20

// massActionDerivative returns d(prod_i c_i^nu_i)/dc_k.
func massActionDerivative(c []float64, parts []Participant, k int) float64 {
	prod := 1.0
	found := false
	for _, p := range parts {
		if p.Species == k {
			ck := c[k]
			if p.Coefficient < 1 && ck < DerivativeFloor {
				ck = DerivativeFloor
			}
			prod *= p.Coefficient * power(ck, p.Coefficient-1)
			found = true
		} else {
			prod *= power(c[p.Species], p.Coefficient)
		}
	}
	if !found {
		return 0
	}
	return prod
}

func power(c, nu float64) float64 {
	switch nu {
	case 0:
		return 1
	case 1:
		return c
	case 2:
		return c * c
	}
	return math.Pow(c, nu)
}
