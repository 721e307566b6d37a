package matrix

import (
	"fmt"
	"math"
	"strings"

	"github.com/openrig/trialctl/pkg/domain"
)

// String renders the full definition as a table: extra timers, one line
// per state with its transition row, timer, output directives and serial
// code. Finalization errors are rendered in place of the table.
func (m *StateMatrix) String() string {
	if err := m.finalize(); err != nil {
		return fmt.Sprintf("StateMatrix (invalid): %v", err)
	}

	var b strings.Builder
	for t, name := range m.extraNames {
		trigger := "[nothing]"
		if s, ok := m.states.Name(m.extraTriggers[t]); ok {
			trigger = s
		}
		fmt.Fprintf(&b, "%s:\t%.2f triggered by %s\n", name, m.extraDurations[t], trigger)
	}

	cols := make([]string, m.nEvents())
	for name, col := range m.events {
		if col == domain.ForcedEvent {
			continue
		}
		label := name
		if len(label) > 4 {
			label = label[:4]
		}
		cols[col] = label
	}
	fmt.Fprintf(&b, "%-20s\t%s\t|  Timer\tOutputs\tSerial\n", "", strings.Join(cols, "\t"))

	for idx, row := range m.rows {
		name, _ := m.states.Name(idx)
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%d", v)
		}
		timer := "inf"
		if !math.IsInf(m.timers[idx], 1) {
			timer = fmt.Sprintf("%.2f", m.timers[idx])
		}
		var outs strings.Builder
		for _, d := range m.outRows[idx] {
			outs.WriteString(d.String())
		}
		fmt.Fprintf(&b, "%-16s [%d]\t%s\t|  %s\t%s\t%d\n",
			name, idx, strings.Join(cells, "\t"), timer, outs.String(), m.serial[idx])
	}
	return b.String()
}
