// Package viz draws simulations in the terminal.
//
// [Canvas] is a braille sub-pixel grid; [Camera] projects particles and
// springs onto it. [Model] is a Bubble Tea program that steps a
// simulation live, and [App] lets the user pick a scenario and preset
// before handing over to it.
//
// # Key Bindings
//
//	Space    - Pause/Resume simulation
//	N        - Single step while paused
//	R        - Reset parameters and anchors
//	Tab      - Cycle parameters, Up/Down to tune
//	WASD/EC  - Move anchors by hand
//	[ ]      - Steps per frame
//	?        - Show help overlay
package viz
