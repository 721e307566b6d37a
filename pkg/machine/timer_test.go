package machine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrig/trialctl/pkg/matrix"
)

// punishTask arms an extra timer on entry to wait. The timer fires its
// own event column regardless of which state is current by then.
func punishTask(t *testing.T, duration float64) *matrix.StateMatrix {
	t.Helper()
	sm := matrix.New(map[string]int{"L": 0}, map[string]int{"Light": 0})
	require.NoError(t, sm.AddExtraTimer("punish", duration))
	require.NoError(t, sm.AddState("wait",
		matrix.WithTransitions(map[string]string{
			"Lin":    "reward",
			"punish": "timeout",
		}),
		matrix.WithTrigger("punish"),
	))
	require.NoError(t, sm.AddState("reward",
		matrix.WithTimer(60),
		matrix.WithTransitions(map[string]string{"punish": "timeout"}),
	))
	require.NoError(t, sm.AddState("timeout",
		matrix.WithTimer(60),
		matrix.WithOutputsOn("Light"),
	))
	return sm
}

func TestExtraTimerFires(t *testing.T) {
	sm := punishTask(t, 0.04)
	m, rec := configure(t, sm)
	require.NoError(t, m.Start())
	defer m.Stop()

	require.NoError(t, m.ForceState(0))
	timeout, _ := sm.StateIndex("timeout")
	waitForState(t, m, timeout)

	punish, _ := sm.EventIndex("punish")
	assert.Equal(t, 1, rec.countEvents(punish))

	// One shot: arming happened on entry to wait and the timer does not
	// rearm on its own.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.countEvents(punish))
}

func TestExtraTimerOutlivesStateChanges(t *testing.T) {
	// The state timer is bound to its state, the extra timer is not: it
	// keeps running across the transition out of wait and lands its event
	// in whatever state is current when it expires.
	sm := punishTask(t, 0.06)
	m, rec := configure(t, sm)
	require.NoError(t, m.Start())
	defer m.Stop()

	require.NoError(t, m.ForceState(0))
	wait, _ := sm.StateIndex("wait")
	waitForState(t, m, wait)

	lin, _ := sm.EventIndex("Lin")
	require.NoError(t, m.ProcessInput(lin))
	reward, _ := sm.StateIndex("reward")
	require.Equal(t, reward, m.CurrentState())

	timeout, _ := sm.StateIndex("timeout")
	waitForState(t, m, timeout)

	punish, _ := sm.EventIndex("punish")
	last := rec.lastEvent()
	assert.Equal(t, punish, last.Event)
	assert.Equal(t, timeout, last.NextState)
}

func TestReenteringTriggerStateDoesNotRestartTimer(t *testing.T) {
	sm := punishTask(t, 0.08)
	m, rec := configure(t, sm)
	require.NoError(t, m.Start())
	defer m.Stop()

	require.NoError(t, m.ForceState(0))
	wait, _ := sm.StateIndex("wait")
	waitForState(t, m, wait)

	// Bounce out of wait and back while the timer runs.
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.ForceState(0))
	waitForState(t, m, wait)

	timeout, _ := sm.StateIndex("timeout")
	waitForState(t, m, timeout)

	punish, _ := sm.EventIndex("punish")
	assert.Equal(t, 1, rec.countEvents(punish))
}

func TestStopCancelsTimers(t *testing.T) {
	sm := punishTask(t, 0.03)
	m, rec := configure(t, sm)
	require.NoError(t, m.Start())
	require.NoError(t, m.ForceState(0))
	wait, _ := sm.StateIndex("wait")
	waitForState(t, m, wait)

	m.Stop()
	before := rec.eventCount()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, before, rec.eventCount(), "timers must not fire after Stop")
	assert.False(t, m.Running())
}

func TestZeroTimerAdvancesImmediately(t *testing.T) {
	sm := matrix.New(map[string]int{"L": 0}, map[string]int{})
	require.NoError(t, sm.AddState("splash",
		matrix.WithTimer(0),
		matrix.WithTransitions(map[string]string{"Tup": "main"}),
	))
	require.NoError(t, sm.AddState("main", matrix.WithTimer(60)))
	m, _ := configure(t, sm)
	require.NoError(t, m.Start())
	defer m.Stop()

	require.NoError(t, m.ForceState(0))
	main, _ := sm.StateIndex("main")
	waitForState(t, m, main)
}
