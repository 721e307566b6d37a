// Package machine executes one configured automaton instance.
//
// The machine holds the current state, manages the single active
// state-timer plus any independently running extra timers, accepts
// discrete input events, resolves the next state by table lookup, applies
// output side effects and notifies subscribers of every processed event.
//
// Timer expiry is not a special code path: it funnels through the same
// matrix lookup as an external input, so timeouts and pokes have
// identical semantics. All entry points and timer callbacks serialize on
// one mutex, which stands in for the single-threaded dispatch the design
// assumes; notification handlers are invoked synchronously and must not
// call back into the machine.
package machine
