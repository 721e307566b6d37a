package domain

import "math"

// OutputDirective is a per-state instruction for one output channel,
// applied when the state is entered.
type OutputDirective int8

const (
	// OutputOff turns the channel off on state entry.
	OutputOff OutputDirective = 0
	// OutputOn turns the channel on on state entry.
	OutputOn OutputDirective = 1
	// NoChange leaves the channel exactly as it is, including values set
	// by a previous forced output.
	NoChange OutputDirective = -1
)

// Valid reports whether d is one of the three legal directive values.
func (d OutputDirective) Valid() bool {
	return d == OutputOff || d == OutputOn || d == NoChange
}

func (d OutputDirective) String() string {
	switch d {
	case OutputOff:
		return "0"
	case OutputOn:
		return "1"
	case NoChange:
		return "-"
	default:
		return "?"
	}
}

// ForcedEvent is the reserved pseudo-event index reported in event records
// for externally forced transitions. It never appears as a matrix column.
const ForcedEvent = -1

// InfiniteTime marks a state timer that never expires.
var InfiniteTime = math.Inf(1)
