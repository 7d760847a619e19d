package thermo

import "errors"

var (
	ErrNoSpecies         = errors.New("thermo: map has no species")
	ErrDuplicateSpecies  = errors.New("thermo: duplicate species name")
	ErrInvalidSpecies    = errors.New("thermo: invalid species data")
	ErrDimensionMismatch = errors.New("thermo: mole fraction vector length does not match species count")
	ErrEnthalpyInversion = errors.New("thermo: temperature from enthalpy did not converge")
)
