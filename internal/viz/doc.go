// Package viz renders batch reactor runs in the terminal.
//
// [LiveModel] is a Bubble Tea program that steps a reactor with a host
// integrator and redraws the temperature history as it goes. The styles and
// helpers in this package format the summaries printed by the CLI.
//
// # Key Bindings
//
//	Space - Pause/Resume integration
//	R     - Reset to the initial mixture
//	+/-   - More or fewer steps per frame
//	Q     - Quit
package viz
