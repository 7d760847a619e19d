// Package thermo implements an ideal-gas thermodynamic map built from
// NASA 7-coefficient polynomials.
//
// All molar quantities are per kmol, masses in kg, pressures in Pa, so that
// concentrations come out in kmol/m3 and R is [R] = 8314.4621 J/(kmol K).
//
// The map holds no current temperature or pressure: callers pass a [State]
// value wherever one is needed, which makes a single [Map] safe to share
// between goroutines.
package thermo
