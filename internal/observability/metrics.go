package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the Prometheus series this runtime actually produces:
// LLM request performance, tool dispatch outcomes, agent tick cadence, and
// session lifecycle counts. HTTP/database metrics are out of scope — the
// transport layer and the Store Port's own backend own those, per §1's
// "consumed only through narrow interfaces" boundary.
type Metrics struct {
	// LLMRequestDuration measures ChatCompletion Port latency in seconds.
	// Labels: provider (anthropic|openai), model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts ChatCompletion Port calls.
	// Labels: provider, model, status (success|error).
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, kind (prompt|completion).
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts Tool Surface dispatches.
	// Labels: tool_name, status (success|error).
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool dispatch latency in seconds.
	// Labels: tool_name.
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by originating component and kind.
	// Labels: component (controller|manager|timer|store|engine), error_kind.
	ErrorCounter *prometheus.CounterVec

	// ActiveAgents gauges currently-running agent goroutines.
	// Labels: session_code, schedule (active|passive).
	ActiveAgents *prometheus.GaugeVec

	// ActiveSessions gauges sessions currently in session_active status.
	ActiveSessions prometheus.Gauge

	// SessionDuration measures wall-clock time from StartSession to completion.
	// Labels: experiment_type.
	SessionDuration *prometheus.HistogramVec

	// AgentTickCounter counts completed Agent Controller ticks.
	// Labels: experiment_type, outcome (acted|silent|error).
	AgentTickCounter *prometheus.CounterVec

	// TradeOutcomeCounter counts ShapeFactory trade resolutions.
	// Labels: status (completed|cancelled|already_processed).
	TradeOutcomeCounter *prometheus.CounterVec
}

// NewMetrics creates and registers every series with Prometheus's default
// registry. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_llm_request_duration_seconds",
				Help:    "Duration of ChatCompletion Port requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_llm_requests_total",
				Help: "Total ChatCompletion Port requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_llm_tokens_total",
				Help: "Total tokens used by provider, model, and kind",
			},
			[]string{"provider", "model", "kind"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_tool_executions_total",
				Help: "Total Tool Surface dispatches by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_tool_execution_duration_seconds",
				Help:    "Duration of Tool Surface dispatches in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"tool_name"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_errors_total",
				Help: "Total errors by originating component and error kind",
			},
			[]string{"component", "error_kind"},
		),
		ActiveAgents: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nexus_active_agents",
				Help: "Currently-running agent goroutines by session and schedule class",
			},
			[]string{"session_code", "schedule"},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexus_active_sessions",
				Help: "Sessions currently in session_active status",
			},
		),
		SessionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_session_duration_seconds",
				Help:    "Wall-clock duration of completed sessions in seconds",
				Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400},
			},
			[]string{"experiment_type"},
		),
		AgentTickCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_agent_ticks_total",
				Help: "Completed Agent Controller ticks by experiment type and outcome",
			},
			[]string{"experiment_type", "outcome"},
		),
		TradeOutcomeCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_trade_outcomes_total",
				Help: "ShapeFactory trade offer resolutions by status",
			},
			[]string{"status"},
		),
	}
}

// RecordLLMRequest records one ChatCompletion Port round-trip.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records one Tool Surface dispatch.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a component and error kind.
func (m *Metrics) RecordError(component, errorKind string) {
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}

// AgentStarted increments the active-agent gauge for a session/schedule pair.
func (m *Metrics) AgentStarted(sessionCode, schedule string) {
	m.ActiveAgents.WithLabelValues(sessionCode, schedule).Inc()
}

// AgentStopped decrements the active-agent gauge for a session/schedule pair.
func (m *Metrics) AgentStopped(sessionCode, schedule string) {
	m.ActiveAgents.WithLabelValues(sessionCode, schedule).Dec()
}

// SessionStarted increments the active-sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active-sessions gauge and records session duration.
func (m *Metrics) SessionEnded(experimentType string, durationSeconds float64) {
	m.ActiveSessions.Dec()
	m.SessionDuration.WithLabelValues(experimentType).Observe(durationSeconds)
}

// RecordAgentTick records one completed Agent Controller tick.
func (m *Metrics) RecordAgentTick(experimentType, outcome string) {
	m.AgentTickCounter.WithLabelValues(experimentType, outcome).Inc()
}

// RecordTradeOutcome records one ShapeFactory trade resolution.
func (m *Metrics) RecordTradeOutcome(status string) {
	m.TradeOutcomeCounter.WithLabelValues(status).Inc()
}
