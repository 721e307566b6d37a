// Package matrix assembles state transition matrices for behavioral
// control.
//
// A StateMatrix is built incrementally by name: states, per-state timers,
// event transitions, output directives and independently running extra
// timers. Construction is cheap and mutable; the finalizing accessors
// (Matrix, Outputs, Timers, ...) validate the definition, append the
// implicit END state and return fixed-shape arrays for the runtime in
// pkg/machine.
//
// The event columns of a matrix without extra timers are, for inputs
// "C", "L", "R":
//
//	Cin  Cout  Lin  Lout  Rin  Rout  Tup
//
// where Tup is the synthetic event fired when the active state's timer
// expires. Each extra timer adds one more column after Tup. The START
// state is always state 0 and advances to state 1 as soon as it is timed;
// the END state is always last and never times out, parking the machine
// between trials.
package matrix
