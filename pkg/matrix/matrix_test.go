package matrix_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrig/trialctl/pkg/domain"
	"github.com/openrig/trialctl/pkg/matrix"
)

func twoPortMatrix(t *testing.T) *matrix.StateMatrix {
	t.Helper()
	return matrix.New(
		map[string]int{"L": 0, "R": 1},
		map[string]int{"ValveL": 0, "ValveR": 1},
	)
}

func TestEventColumns(t *testing.T) {
	sm := twoPortMatrix(t)

	for name, want := range map[string]int{
		"Lin": 0, "Lout": 1, "Rin": 2, "Rout": 3, "Tup": 4,
	} {
		col, ok := sm.EventIndex(name)
		require.True(t, ok, "event %s missing", name)
		assert.Equal(t, want, col, "event %s", name)
	}
	assert.Equal(t, 4, sm.TimerEventIndex())

	forced, ok := sm.EventIndex("Forced")
	require.True(t, ok)
	assert.Equal(t, domain.ForcedEvent, forced)
}

func TestStartAndEndStates(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait", matrix.WithTimer(10)))

	mat, err := sm.Matrix()
	require.NoError(t, err)

	// START is state 0 and advances to state 1 on Tup.
	start, ok := sm.StateIndex(matrix.StartState)
	require.True(t, ok)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1, mat[0][sm.TimerEventIndex()])

	// END is the last state and self-loops on everything.
	end, ok := sm.StateIndex(matrix.EndState)
	require.True(t, ok)
	assert.Equal(t, len(mat)-1, end)
	for _, target := range mat[end] {
		assert.Equal(t, end, target)
	}

	timers, err := sm.Timers()
	require.NoError(t, err)
	assert.Equal(t, 0.0, timers[start])
	assert.True(t, timers[end] > 1e18, "END timer should be infinite")
}

func TestFinalizerIdempotent(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait", matrix.WithTimer(1),
		matrix.WithTransitions(map[string]string{"Lin": "reward"})))

	first, err := sm.Matrix()
	require.NoError(t, err)
	second, err := sm.Matrix()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, len(first), len(second), "second finalize must not append another END")

	timers1, err := sm.Timers()
	require.NoError(t, err)
	timers2, err := sm.Timers()
	require.NoError(t, err)
	assert.Equal(t, timers1, timers2)
}

func TestSelfLoopDefaults(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait",
		matrix.WithTransitions(map[string]string{"Lin": "reward"})))

	mat, err := sm.Matrix()
	require.NoError(t, err)
	wait, _ := sm.StateIndex("wait")
	reward, _ := sm.StateIndex("reward")

	lin, _ := sm.EventIndex("Lin")
	assert.Equal(t, reward, mat[wait][lin])
	// Every other event self-loops.
	for col, target := range mat[wait] {
		if col == lin {
			continue
		}
		assert.Equal(t, wait, target, "column %d", col)
	}
	// The auto-created target self-loops everywhere.
	for _, target := range mat[reward] {
		assert.Equal(t, reward, target)
	}
}

func TestAddStateReplaces(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait",
		matrix.WithTimer(5),
		matrix.WithTransitions(map[string]string{"Lin": "reward"}),
		matrix.WithOutputsOn("ValveL"),
		matrix.WithSerialOut(7),
	))
	wait, _ := sm.StateIndex("wait")

	// Re-adding fully replaces the previous definition.
	require.NoError(t, sm.AddState("wait",
		matrix.WithTransitions(map[string]string{"Rin": "reward"})))

	assert.Equal(t, wait, mustIndex(t, sm, "wait"), "index must be permanent")

	mat, err := sm.Matrix()
	require.NoError(t, err)
	lin, _ := sm.EventIndex("Lin")
	rin, _ := sm.EventIndex("Rin")
	reward, _ := sm.StateIndex("reward")
	assert.Equal(t, wait, mat[wait][lin], "old transition must be gone")
	assert.Equal(t, reward, mat[wait][rin])

	timers, err := sm.Timers()
	require.NoError(t, err)
	assert.True(t, timers[wait] > 1e18, "timer must reset to infinite")

	outputs, err := sm.Outputs()
	require.NoError(t, err)
	assert.Equal(t, domain.NoChange, outputs[wait][0], "outputs must reset")

	serial, err := sm.SerialOutputs()
	require.NoError(t, err)
	assert.EqualValues(t, 0, serial[wait])
}

func TestOutputDirectives(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("rewardL",
		matrix.WithOutputsOn("ValveL"),
		matrix.WithOutputsOff("ValveR"),
	))

	outputs, err := sm.Outputs()
	require.NoError(t, err)
	idx, _ := sm.StateIndex("rewardL")
	assert.Equal(t, domain.OutputOn, outputs[idx][0])
	assert.Equal(t, domain.OutputOff, outputs[idx][1])
}

func TestAddStateErrors(t *testing.T) {
	sm := twoPortMatrix(t)

	err := sm.AddState("wait", matrix.WithTransitions(map[string]string{"Cin": "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event")

	err = sm.AddState("wait", matrix.WithOutputsOn("Laser"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")

	err = sm.AddState("wait", matrix.WithTrigger("punish"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extra timer")

	err = sm.AddState("wait", matrix.WithTimer(-1))
	require.Error(t, err)

	// Forced is a pseudo-event, never a matrix column.
	err = sm.AddState("wait", matrix.WithTransitions(map[string]string{"Forced": "wait"}))
	require.Error(t, err)
}

func TestExtraTimers(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddExtraTimer("punish", 2.0))

	// Extra timer occupies the column after Tup.
	col, ok := sm.EventIndex("punish")
	require.True(t, ok)
	assert.Equal(t, sm.TimerEventIndex()+1, col)

	require.Error(t, sm.AddExtraTimer("punish", 1.0), "duplicate must fail")

	require.NoError(t, sm.AddState("wrong_poke", matrix.WithTrigger("punish")))

	// Declaring extra timers after states is a construction-order error.
	assert.ErrorIs(t, sm.AddExtraTimer("late", 1.0), domain.ErrExtraTimersFirst)

	assert.Equal(t, []float64{2.0}, sm.ExtraTimerDurations())
	wrong, _ := sm.StateIndex("wrong_poke")
	assert.Equal(t, []int{wrong}, sm.ExtraTimerTriggers())

	require.NoError(t, sm.SetExtraTimerDuration("punish", 3.5))
	assert.Equal(t, []float64{3.5}, sm.ExtraTimerDurations())
	require.Error(t, sm.SetExtraTimerDuration("nope", 1.0))

	// Rows grow one column per extra timer.
	mat, err := sm.Matrix()
	require.NoError(t, err)
	assert.Len(t, mat[0], 6)
}

func TestExtraTimerDefaultTrigger(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddExtraTimer("punish", 2.0))
	require.NoError(t, sm.AddState("wait"))
	_, err := sm.Matrix()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sm.ExtraTimerTriggers(), "default trigger is START")
}

func TestResetTransitionsPreservesIndices(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait",
		matrix.WithTimer(1),
		matrix.WithTransitions(map[string]string{"Lin": "rewardL", "Rin": "rewardR"}),
		matrix.WithOutputsOn("ValveL"),
	))
	_, err := sm.Matrix()
	require.NoError(t, err)

	before := map[string]int{}
	for _, name := range []string{"START", "wait", "rewardL", "rewardR", "END"} {
		before[name] = mustIndex(t, sm, name)
	}

	sm.ResetTransitions()

	for name, idx := range before {
		assert.Equal(t, idx, mustIndex(t, sm, name), "index of %s", name)
	}

	mat, err := sm.Matrix()
	require.NoError(t, err)
	wait := before["wait"]
	for _, target := range mat[wait] {
		assert.Equal(t, wait, target)
	}
	timers, err := sm.Timers()
	require.NoError(t, err)
	assert.True(t, timers[wait] > 1e18)

	// START keeps its managed bracketing behavior.
	assert.Equal(t, 0.0, timers[0])
	assert.Equal(t, 1, mat[0][sm.TimerEventIndex()])
}

func TestNamesExport(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait"))

	names, err := sm.Names()
	require.NoError(t, err)
	assert.Equal(t, domain.ForcedEvent, names.Events["Forced"])
	assert.Equal(t, 4, names.Events["Tup"])
	assert.Equal(t, 0, names.Outputs["ValveL"])
	assert.Equal(t, 0, names.States["START"])
	assert.Contains(t, names.States, "END")

	var b strings.Builder
	require.NoError(t, sm.EncodeNames(&b))
	assert.Contains(t, b.String(), "Tup")
}

func TestString(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddExtraTimer("punish", 2.0))
	require.NoError(t, sm.AddState("wait", matrix.WithTimer(3),
		matrix.WithTransitions(map[string]string{"Lin": "rewardL"})))

	s := sm.String()
	assert.Contains(t, s, "wait")
	assert.Contains(t, s, "END")
	assert.Contains(t, s, "punish")
}

func TestAnalyze(t *testing.T) {
	sm := twoPortMatrix(t)
	require.NoError(t, sm.AddState("wait", matrix.WithTimer(1),
		matrix.WithTransitions(map[string]string{"Tup": "END"})))

	report, err := sm.Analyze()
	require.NoError(t, err)
	end, _ := sm.StateIndex("END")
	assert.Contains(t, report.DeadEnds, end)
	assert.True(t, report.FullyConnected)
	assert.Greater(t, report.Density, 0.0)
}

func mustIndex(t *testing.T, sm *matrix.StateMatrix, name string) int {
	t.Helper()
	idx, ok := sm.StateIndex(name)
	require.True(t, ok, "state %s not found", name)
	return idx
}
