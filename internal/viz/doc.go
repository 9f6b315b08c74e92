// Package viz is a terminal front end for the value iteration engine.
//
// [Model] is a Bubble Tea program that runs a few sweeps per tick and shows
// the iteration count, the current max-norm change, a smoothed progress bar,
// a chart of recent norms and a coloured map of the control field.
//
// # Key Bindings
//
//	Space - Pause/Resume solving
//	+/-   - More/fewer sweeps per tick
//	C     - Toggle the control map
//	Q     - Quit
package viz
