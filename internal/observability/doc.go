// Package observability provides the runtime's ambient metrics, structured
// logging, and tracing: Prometheus series for LLM/tool/agent activity
// (metrics.go), slog-based logging with secret redaction for request and
// session correlation (logging.go), and OpenTelemetry spans covering one
// agent tick, one LLM round-trip, and one tool dispatch (tracing.go).
//
// This is process-wide instrumentation, distinct from the per-agent NDJSON
// streams in internal/sinks: those are the experiment's append-only record
// of what one agent did; this package is for operators watching the process
// run.
package observability
