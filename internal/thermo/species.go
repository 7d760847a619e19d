package thermo

import (
	"fmt"
	"math"
)

// Species holds the NASA 7-coefficient polynomials of one species.
// Low covers [TLow, TMid], High covers [TMid, THigh]; outside that range the
// nearest polynomial is extrapolated.
type Species struct {
	Name            string
	MolecularWeight float64 // kg/kmol
	TLow            float64
	TMid            float64
	THigh           float64
	Low             [7]float64
	High            [7]float64
}

// ConstantCp builds a species with temperature independent heat capacity.
// cp is in J/(kmol K), h298 in J/kmol and s298 in J/(kmol K).
func ConstantCp(name string, mw, cp, h298, s298 float64) Species {
	var a [7]float64
	a[0] = cp / R
	a[5] = (h298 - cp*TRef) / R
	a[6] = s298/R - a[0]*math.Log(TRef)
	return Species{
		Name:            name,
		MolecularWeight: mw,
		TLow:            200,
		TMid:            1000,
		THigh:           6000,
		Low:             a,
		High:            a,
	}
}

func (s Species) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSpecies)
	}
	if !(s.MolecularWeight > 0) {
		return fmt.Errorf("%w: %s: molecular weight must be positive", ErrInvalidSpecies, s.Name)
	}
	if !(s.TLow < s.TMid && s.TMid < s.THigh) {
		return fmt.Errorf("%w: %s: temperature ranges must satisfy low < mid < high", ErrInvalidSpecies, s.Name)
	}
	return nil
}

func (s *Species) coefficients(t float64) *[7]float64 {
	if t < s.TMid {
		return &s.Low
	}
	return &s.High
}

// Cp returns the molar heat capacity in J/(kmol K).
func (s *Species) Cp(t float64) float64 {
	a := s.coefficients(t)
	return R * (a[0] + t*(a[1]+t*(a[2]+t*(a[3]+t*a[4]))))
}

// Enthalpy returns the molar enthalpy in J/kmol.
func (s *Species) Enthalpy(t float64) float64 {
	a := s.coefficients(t)
	return R * (t*(a[0]+t*(a[1]/2+t*(a[2]/3+t*(a[3]/4+t*a[4]/5)))) + a[5])
}

// Entropy returns the standard-state molar entropy in J/(kmol K).
func (s *Species) Entropy(t float64) float64 {
	a := s.coefficients(t)
	return R * (a[0]*math.Log(t) + t*(a[1]+t*(a[2]/2+t*(a[3]/3+t*a[4]/4))) + a[6])
}

// Gibbs returns the standard-state molar Gibbs energy in J/kmol.
func (s *Species) Gibbs(t float64) float64 {
	return s.Enthalpy(t) - t*s.Entropy(t)
}
