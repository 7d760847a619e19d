// Package kinetics implements a mass-action gas-phase kinetics map:
// Arrhenius rate constants, reversible reactions closed by thermodynamic
// equilibrium, third-body enhancement and analytic derivatives of the
// species formation rates with respect to concentrations.
//
// Concentrations are in kmol/m3 and rates in kmol/(m3 s). The thermodynamic
// state is passed explicitly to every call.
package kinetics
