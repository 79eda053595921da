// Package manager implements the Agent Manager (spec.md §4.F): it starts
// and stops one goroutine per agent, schedules active agents on a jittered
// tick interval, and wakes passive agents on explicit triggers.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/controller"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/sinks"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithJitter overrides the jitter function applied to an active agent's base
// tick interval. Defaults to a uniform ±2s spread (§4.F).
func WithJitter(jitter func(base time.Duration) time.Duration) Option {
	return func(m *Manager) {
		if jitter != nil {
			m.jitter = jitter
		}
	}
}

// WithStopTimeout overrides how long Stop waits for a goroutine to exit
// before abandoning it. Defaults to 3s (§4.F, §5's cancellation policy).
func WithStopTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.stopTimeout = d
		}
	}
}

// WithLogDir enables per-agent logging sinks (§4.I) rooted at dir. Left
// unset, agents run with sinks disabled (every sink call becomes a no-op).
func WithLogDir(dir string) Option {
	return func(m *Manager) {
		m.logDir = dir
	}
}

func defaultJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := 2 * time.Second
	delta := time.Duration(rand.Int63n(int64(2*spread+1))) - spread
	result := base + delta
	if result < time.Second {
		result = time.Second
	}
	return result
}

func agentKey(session models.SessionCode, participant models.ParticipantCode) string {
	return fmt.Sprintf("%s:%s", session, participant)
}

type agentHandle struct {
	session     models.SessionCode
	participant models.ParticipantCode
	cancel      context.CancelFunc
	mailbox     chan struct{}
	done        chan struct{}
	memory      *models.AgentMemory
	failures    *models.FailureHistory
	opts        llm.Options
	sinks       *sinks.Sinks
}

// Manager owns the map of agent_key -> running goroutine (§4.F).
type Manager struct {
	store      store.Store
	controller *controller.Controller
	logger     *slog.Logger
	now        func() time.Time
	jitter     func(time.Duration) time.Duration
	stopTimeout time.Duration
	logDir     string

	mu        sync.Mutex
	agents    map[string]*agentHandle
	bySession map[models.SessionCode]map[models.ParticipantCode]struct{}
	wg        sync.WaitGroup
}

// New builds a Manager driving ctrl's Tick/FinalVote calls.
func New(st store.Store, ctrl *controller.Controller, opts ...Option) *Manager {
	m := &Manager{
		store:       st,
		controller:  ctrl,
		logger:      slog.Default().With("component", "manager"),
		now:         time.Now,
		jitter:      defaultJitter,
		stopTimeout: 3 * time.Second,
		agents:      make(map[string]*agentHandle),
		bySession:   make(map[models.SessionCode]map[models.ParticipantCode]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start registers and runs one agent goroutine. Starting an already-running
// agent is a no-op. For HiddenProfiles passive agents baseInterval is
// ignored; the agent only runs on explicit Trigger calls (§4.F).
func (m *Manager) Start(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, experimentType models.ExperimentType, initiative models.Initiative, baseInterval time.Duration, systemPrompt string, maxMemory int, opts llm.Options) *models.Failure {
	key := agentKey(session, participant)

	m.mu.Lock()
	if _, running := m.agents[key]; running {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	h := &agentHandle{
		session:     session,
		participant: participant,
		cancel:      cancel,
		mailbox:     make(chan struct{}, 1),
		done:        make(chan struct{}),
		memory:      &models.AgentMemory{SystemPrompt: systemPrompt, MaxLength: maxMemory},
		failures:    &models.FailureHistory{},
		opts:        opts,
	}
	if m.logDir != "" {
		s, err := sinks.Open(m.logDir, session, participant)
		if err != nil {
			m.logger.Warn("open log sinks", "session", session, "participant", participant, "error", err)
		} else {
			h.sinks = s
			h.sinks.LogMemory(sinks.MemoryEvent{Timestamp: m.now(), Kind: "initialized"})
		}
	}
	m.agents[key] = h
	if m.bySession[session] == nil {
		m.bySession[session] = make(map[models.ParticipantCode]struct{})
	}
	m.bySession[session][participant] = struct{}{}
	m.mu.Unlock()

	interval := m.jitter(baseInterval)
	if experimentType == models.ExperimentHiddenProfiles && initiative == models.InitiativePassive {
		interval = 0
	}

	m.wg.Add(1)
	go m.run(loopCtx, key, h, interval)
	return nil
}

// Trigger wakes a single agent for one decide cycle (incoming message to a
// passive agent, §4.F). The mailbox has capacity 1; a pending trigger is not
// queued twice — latest wins, per spec.md §9's mailbox note.
func (m *Manager) Trigger(session models.SessionCode, participant models.ParticipantCode) {
	m.mu.Lock()
	h, ok := m.agents[agentKey(session, participant)]
	m.mu.Unlock()
	if !ok {
		return
	}
	select {
	case h.mailbox <- struct{}{}:
	default:
	}
}

// TriggerSession wakes every agent registered in session (reading-phase
// completion fan-out, §4.C.5/§4.F).
func (m *Manager) TriggerSession(session models.SessionCode) {
	m.mu.Lock()
	participants := make([]models.ParticipantCode, 0, len(m.bySession[session]))
	for p := range m.bySession[session] {
		participants = append(participants, p)
	}
	m.mu.Unlock()
	for _, p := range participants {
		m.Trigger(session, p)
	}
}

// Stop signals one agent to exit, waits up to the configured stop timeout,
// and cleans up its ParticipantInitiatives entry. For HiddenProfiles it
// first attempts one final-vote decide cycle (§4.F); a failure there is
// logged, never propagated, since shutdown must proceed regardless.
func (m *Manager) Stop(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) {
	key := agentKey(session, participant)
	m.mu.Lock()
	h, ok := m.agents[key]
	if ok {
		delete(m.agents, key)
		if set := m.bySession[session]; set != nil {
			delete(set, participant)
			if len(set) == 0 {
				delete(m.bySession, session)
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if m.controller != nil {
		if f := m.controller.FinalVote(ctx, session, participant, h.memory, h.opts, h.sinks); f != nil {
			m.logger.Warn("final vote attempt failed", "session", session, "participant", participant, "error", f)
		}
	}

	h.cancel()
	select {
	case <-h.done:
	case <-time.After(m.stopTimeout):
		m.logger.Warn("agent stop timed out, abandoning goroutine", "session", session, "participant", participant)
	}

	if f := m.store.UpdateSessionConfig(ctx, session, func(cfg *models.SessionConfig) {
		if cfg.ParticipantInitiatives != nil {
			delete(cfg.ParticipantInitiatives, participant)
		}
	}); f != nil {
		m.logger.Warn("clear participant initiative", "session", session, "participant", participant, "error", f)
	}
}

// StopSession stops every agent currently registered under session —
// experiment completion's "deactivate all agents after final-vote hook"
// (§4.F).
func (m *Manager) StopSession(ctx context.Context, session models.SessionCode) {
	m.mu.Lock()
	participants := make([]models.ParticipantCode, 0, len(m.bySession[session]))
	for p := range m.bySession[session] {
		participants = append(participants, p)
	}
	m.mu.Unlock()
	for _, p := range participants {
		m.Stop(ctx, session, p)
	}
}

func (m *Manager) run(ctx context.Context, key string, h *agentHandle, interval time.Duration) {
	defer m.wg.Done()
	defer close(h.done)

	if interval <= 0 {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.mailbox:
				m.runTick(ctx, h)
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.mailbox:
			m.runTick(ctx, h)
		case <-ticker.C:
			m.runTick(ctx, h)
		}
	}
}

func (m *Manager) runTick(ctx context.Context, h *agentHandle) {
	if m.controller == nil {
		return
	}
	result, f := m.controller.Tick(ctx, h.session, h.participant, h.memory, h.failures, h.opts, h.sinks)
	if f != nil {
		m.logger.Warn("tick failed", "session", h.session, "participant", h.participant, "error", f)
		return
	}
	m.logger.Debug("tick complete", "session", h.session, "participant", h.participant, "actions", result.PlanActions)
}
