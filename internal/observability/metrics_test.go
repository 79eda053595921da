package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	m := &Metrics{
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "t_llm_duration", Buckets: prometheus.DefBuckets},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_llm_requests"}, []string{"provider", "model", "status"},
		),
		LLMTokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_llm_tokens"}, []string{"provider", "model", "kind"},
		),
		ToolExecutionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_tool_execs"}, []string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "t_tool_duration", Buckets: prometheus.DefBuckets},
			[]string{"tool_name"},
		),
		ErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_errors"}, []string{"component", "error_kind"},
		),
		ActiveAgents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "t_active_agents"}, []string{"session_code", "schedule"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "t_active_sessions"}),
		SessionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "t_session_duration", Buckets: prometheus.DefBuckets},
			[]string{"experiment_type"},
		),
		AgentTickCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_agent_ticks"}, []string{"experiment_type", "outcome"},
		),
		TradeOutcomeCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "t_trade_outcomes"}, []string{"status"},
		),
	}
	return m
}

func TestRecordLLMRequest(t *testing.T) {
	m := newTestMetrics()
	m.RecordLLMRequest("anthropic", "claude-3-5-sonnet", "success", 1.2, 100, 50)

	assert.Equal(t, 1, testutil.CollectAndCount(m.LLMRequestCounter))
	assert.InDelta(t, 100, testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("anthropic", "claude-3-5-sonnet", "prompt")), 0)
	assert.InDelta(t, 50, testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("anthropic", "claude-3-5-sonnet", "completion")), 0)
}

func TestRecordToolExecution(t *testing.T) {
	m := newTestMetrics()
	m.RecordToolExecution("create_trade_offer", "success", 0.01)
	m.RecordToolExecution("create_trade_offer", "error", 0.02)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ToolExecutionCounter.WithLabelValues("create_trade_offer", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ToolExecutionCounter.WithLabelValues("create_trade_offer", "error")), 0)
}

func TestAgentGauges(t *testing.T) {
	m := newTestMetrics()
	m.AgentStarted("DEMO001", "active")
	m.AgentStarted("DEMO001", "active")
	m.AgentStopped("DEMO001", "active")

	assert.InDelta(t, 1, testutil.ToFloat64(m.ActiveAgents.WithLabelValues("DEMO001", "active")), 0)
}

func TestSessionLifecycleGauge(t *testing.T) {
	m := newTestMetrics()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded("shapefactory", 900)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ActiveSessions), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.SessionDuration))
}

func TestRecordAgentTickAndTradeOutcome(t *testing.T) {
	m := newTestMetrics()
	m.RecordAgentTick("hiddenprofiles", "acted")
	m.RecordTradeOutcome("completed")
	m.RecordTradeOutcome("already_processed")

	assert.InDelta(t, 1, testutil.ToFloat64(m.AgentTickCounter.WithLabelValues("hiddenprofiles", "acted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TradeOutcomeCounter.WithLabelValues("completed")), 0)
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics()
	m.RecordError("controller", "LLMError")
	assert.InDelta(t, 1, testutil.ToFloat64(m.ErrorCounter.WithLabelValues("controller", "LLMError")), 0)
}
