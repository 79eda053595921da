// Package timer implements the Session Timer (spec.md §4.G): one 1Hz
// countdown per active session, broadcasting on every tick and flipping the
// session to completed at zero.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/events"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Option configures a Timer.
type Option func(*Timer)

// WithLogger overrides the timer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Timer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTickInterval overrides the countdown granularity; defaults to 1s
// (§4.G's "1Hz tick").
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tickInterval = d
		}
	}
}

// Timer runs one countdown goroutine per active session.
type Timer struct {
	store  store.Store
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time

	tickInterval time.Duration

	mu      sync.Mutex
	running map[models.SessionCode]context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Timer over st, publishing tick/completion events on bus.
func New(st store.Store, bus *events.Bus, opts ...Option) *Timer {
	t := &Timer{
		store:        st,
		bus:          bus,
		logger:       slog.Default().With("component", "timer"),
		now:          time.Now,
		tickInterval: time.Second,
		running:      make(map[models.SessionCode]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins counting down session from its current TimerState. Calling
// Start twice for the same session is a no-op; the caller must Stop first to
// restart a countdown.
func (t *Timer) Start(ctx context.Context, session models.SessionCode) *models.Failure {
	t.mu.Lock()
	if _, running := t.running[session]; running {
		t.mu.Unlock()
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.running[session] = cancel
	t.mu.Unlock()

	state, f := t.store.GetTimerState(ctx, session)
	if f != nil {
		state = &models.TimerState{SessionCode: session}
	}
	state.Active = true
	if f := t.store.PutTimerState(ctx, state); f != nil {
		t.mu.Lock()
		delete(t.running, session)
		t.mu.Unlock()
		return f
	}

	t.wg.Add(1)
	go t.run(loopCtx, session)
	return nil
}

// Stop halts session's countdown goroutine, if any, and waits for it to
// exit.
func (t *Timer) Stop(session models.SessionCode) {
	t.mu.Lock()
	cancel, ok := t.running[session]
	if ok {
		delete(t.running, session)
	}
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll halts every running countdown and waits for all of them to exit.
func (t *Timer) StopAll() {
	t.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(t.running))
	for session, cancel := range t.running {
		cancels = append(cancels, cancel)
		delete(t.running, session)
	}
	t.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	t.wg.Wait()
}

func (t *Timer) run(ctx context.Context, session models.SessionCode) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := t.tick(ctx, session); done {
				t.mu.Lock()
				delete(t.running, session)
				t.mu.Unlock()
				return
			}
		}
	}
}

// tick decrements session's remaining time by one second of countdown,
// publishes a timer_update event, and — at zero — transitions the session to
// session_completed and returns true so the caller's loop exits. The ticker
// cadence (tickInterval) and the countdown unit are deliberately decoupled
// so tests can run a full countdown without waiting in real time.
func (t *Timer) tick(ctx context.Context, session models.SessionCode) bool {
	state, f := t.store.GetTimerState(ctx, session)
	if f != nil {
		t.logger.Warn("timer tick: no timer state", "session", session, "error", f)
		return true
	}

	remaining := state.TimeRemainingSecs - 1
	if remaining < 0 {
		remaining = 0
	}
	state.TimeRemainingSecs = remaining

	done := remaining <= 0
	if done {
		state.Active = false
	}
	if f := t.store.PutTimerState(ctx, state); f != nil {
		t.logger.Warn("timer tick: put timer state", "session", session, "error", f)
	}

	if t.bus != nil {
		t.bus.Publish(ctx, models.Event{
			Type:        models.EventTimerUpdate,
			SessionCode: session,
			OccurredAt:  t.now(),
			Payload:     state,
		})
	}

	if done {
		if sess, f := t.store.GetSession(ctx, session); f == nil {
			sess.Status = models.SessionCompleted
			if f := t.store.UpdateSession(ctx, sess); f != nil {
				t.logger.Warn("timer completion: update session", "session", session, "error", f)
			}
		}
	}

	return done
}
