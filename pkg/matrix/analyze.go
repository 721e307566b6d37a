package matrix

import "sort"

// Report summarizes structural properties of a finalized matrix, useful
// for sanity-checking a trial template before running it.
type Report struct {
	NumStates int
	NumEvents int

	// Reachable holds every state that appears as a non-self-loop
	// transition target, plus state 0.
	Reachable   []int
	Unreachable []int

	// DeadEnds lists states whose every event self-loops. The END state
	// is expected to be one of them.
	DeadEnds []int

	FullyConnected bool

	// Density is the fraction of matrix cells that are not self-loops.
	Density float64
}

// Analyze finalizes the definition and computes a structural report.
func (m *StateMatrix) Analyze() (*Report, error) {
	mat, err := m.Matrix()
	if err != nil {
		return nil, err
	}

	n := len(mat)
	// Self-loops are the default filler, so only real edges count as
	// making a state reachable.
	reachable := map[int]bool{0: true}
	for idx, row := range mat {
		for _, target := range row {
			if target != idx {
				reachable[target] = true
			}
		}
	}

	r := &Report{NumStates: n, NumEvents: m.nEvents()}
	nonSelf := 0
	for idx, row := range mat {
		dead := true
		for _, target := range row {
			if target != idx {
				dead = false
				nonSelf++
			}
		}
		if dead {
			r.DeadEnds = append(r.DeadEnds, idx)
		}
		if reachable[idx] {
			r.Reachable = append(r.Reachable, idx)
		} else {
			r.Unreachable = append(r.Unreachable, idx)
		}
	}
	sort.Ints(r.Reachable)
	sort.Ints(r.Unreachable)
	r.FullyConnected = len(r.Unreachable) == 0
	if n > 0 {
		r.Density = float64(nonSelf) / float64(n*m.nEvents())
	}
	return r, nil
}
