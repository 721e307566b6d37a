package triallog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrig/trialctl/pkg/domain"
	"github.com/openrig/trialctl/pkg/machine"
	"github.com/openrig/trialctl/pkg/matrix"
	"github.com/openrig/trialctl/pkg/triallog"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := triallog.NewMemoryStore()

	rows, err := store.Rows(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, store.Append(ctx, "s1", triallog.Row{Trial: 0, Event: 2, Time: 0.5, NextState: 1}))
	require.NoError(t, store.Append(ctx, "s1", triallog.Row{Trial: 0, Event: -1, Time: 0.8, NextState: 3}))
	require.NoError(t, store.Append(ctx, "s2", triallog.Row{Trial: 1, Event: 0, Time: 0.1, NextState: 2}))

	rows, err = store.Rows(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Event)
	assert.Equal(t, -1, rows[1].Event, "forced transitions are logged as -1")

	require.NoError(t, store.Clear(ctx, "s1"))
	rows, err = store.Rows(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.Rows(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "Clear must only touch its own session")
}

func TestRecorderBind(t *testing.T) {
	sm := matrix.New(map[string]int{"L": 0}, map[string]int{})
	require.NoError(t, sm.AddState("wait",
		matrix.WithTimer(60),
		matrix.WithTransitions(map[string]string{"Lin": "END"}),
	))

	m := machine.New()
	require.NoError(t, m.Apply(sm))

	store := triallog.NewMemoryStore()
	epoch := time.Now()
	rec := triallog.NewRecorder(store, "s1",
		triallog.WithEpoch(epoch),
		triallog.WithTrialFunc(func() int { return 7 }),
	)
	rec.Bind(m)

	require.NoError(t, m.Start())
	defer m.Stop()

	wait, _ := sm.StateIndex("wait")
	require.NoError(t, m.ForceState(wait))
	lin, _ := sm.EventIndex("Lin")
	require.NoError(t, m.ProcessInput(lin))

	rows, err := store.Rows(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.ForcedEvent, rows[0].Event)
	assert.Equal(t, wait, rows[0].NextState)
	assert.Equal(t, 7, rows[0].Trial)

	end, _ := sm.StateIndex("END")
	assert.Equal(t, lin, rows[1].Event)
	assert.Equal(t, end, rows[1].NextState)
	assert.GreaterOrEqual(t, rows[1].Time, rows[0].Time)
}

// failingStore rejects every append; the recorder must swallow the error.
type failingStore struct{ triallog.MemoryStore }

func (f *failingStore) Append(context.Context, string, triallog.Row) error {
	return assert.AnError
}

func TestRecorderAppendFailureDoesNotPanic(t *testing.T) {
	sm := matrix.New(map[string]int{"L": 0}, map[string]int{})
	require.NoError(t, sm.AddState("wait", matrix.WithTimer(60)))

	m := machine.New()
	require.NoError(t, m.Apply(sm))

	rec := triallog.NewRecorder(&failingStore{}, "s1")
	rec.Bind(m)

	require.NoError(t, m.Start())
	defer m.Stop()
	assert.NoError(t, m.ForceState(0))
}
