// Package triallog records the stream of processed events for a session:
// one row per event, tagged with the trial it belonged to. Together with
// the exported name maps it forms the reproducibility record of a
// session.
package triallog

import (
	"context"
	"log/slog"
	"time"

	"github.com/openrig/trialctl/internal/logging"
	"github.com/openrig/trialctl/pkg/domain"
	"github.com/openrig/trialctl/pkg/machine"
)

// Row is one logged event. Event is the matrix column, or -1 for a
// forced transition. Time is seconds since the session epoch.
type Row struct {
	Trial     int     `json:"trial"`
	Event     int     `json:"event"`
	Time      float64 `json:"time"`
	NextState int     `json:"next_state"`
}

// Store persists rows for a session.
type Store interface {
	Append(ctx context.Context, session string, row Row) error
	Rows(ctx context.Context, session string) ([]Row, error)
	Clear(ctx context.Context, session string) error
}

// Recorder converts machine event notifications into stored rows.
type Recorder struct {
	store   Store
	session string
	epoch   time.Time
	trialFn func() int
	logger  *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithEpoch sets the session start time that row timestamps are relative
// to. Defaults to the recorder's construction time.
func WithEpoch(epoch time.Time) RecorderOption {
	return func(r *Recorder) { r.epoch = epoch }
}

// WithTrialFunc supplies the current trial number for each row, typically
// (*dispatcher.Dispatcher).Trial. Defaults to -1 for every row.
func WithTrialFunc(fn func() int) RecorderOption {
	return func(r *Recorder) { r.trialFn = fn }
}

// WithLogger sets the logger used to report append failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder creates a recorder writing rows for session to store.
func NewRecorder(store Store, session string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		session: session,
		epoch:   time.Now(),
		trialFn: func() int { return -1 },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind subscribes the recorder to a machine's event notifications.
// Append failures are logged, not propagated: losing a log row must not
// disturb the running trial.
func (r *Recorder) Bind(m *machine.Machine) {
	m.OnEventProcessed(func(rec domain.EventRecord) {
		row := Row{
			Trial:     r.trialFn(),
			Event:     rec.Event,
			Time:      rec.Timestamp.Sub(r.epoch).Seconds(),
			NextState: rec.NextState,
		}
		if err := r.store.Append(context.Background(), r.session, row); err != nil {
			r.logger.Error("failed to append trial log row", "error", err)
		}
	})
}
