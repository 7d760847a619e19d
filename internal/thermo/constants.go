package thermo

const (
	// R is the universal gas constant in J/(kmol K).
	R = 8314.4621

	// PAtm is the standard-state pressure in Pa.
	PAtm = 101325.0

	// TRef is the reference temperature for formation enthalpies in K.
	TRef = 298.15
)

// State is the closed thermodynamic state of a mixture.
type State struct {
	T float64 // K
	P float64 // Pa
}
