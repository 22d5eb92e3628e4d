// Package viz renders solve results in the terminal.
//
//   - [RenderResult]: styled summary of a finished solve
//   - [PlotResiduals]: asciigraph chart of log10 ‖f(x_k)‖
//   - [Stepper]: Bubble Tea model that advances one Newton step per key press
//
// # Key Bindings
//
//	N/Space - Take one Newton step
//	R       - Reset to the initial guess
//	Q       - Quit
package viz
