// Package trialctl controls timed behavioral trials for laboratory
// animal experiments. It drives a finite-state machine whose transitions
// are triggered by discrete input events (sensor pokes) or by per-state
// timeouts, and whose states produce side-effecting outputs (valves,
// LEDs, sound triggers).
//
// The core lives in two packages: pkg/matrix assembles validated
// transition matrices by name, and pkg/machine executes them. Around the
// core, pkg/dispatcher sequences trials, pkg/triallog records events,
// pkg/template loads session files and pkg/emulator replaces the input
// hardware for tests and demos.
//
// This root package is a thin convenience layer for wiring the pieces
// together.
package trialctl
