package llm

import (
	"context"
	"time"

	"github.com/haasonsaas/nexus/internal/backoff"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/ratelimit"
	"github.com/haasonsaas/nexus/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// Resilient wraps a ChatCompletion adapter with the policy spec.md §1 assigns
// to the port's own contract: "It does not rate-limit LLM calls; that is the
// ChatCompletion port's contract." The core (Agent Controller) calls this
// Port exactly like any other ChatCompletion and never sees a retry, a
// throttle wait, or a trace span — those are this type's job.
type Resilient struct {
	next    ChatCompletion
	limiter *ratelimit.Limiter
	policy  backoff.BackoffPolicy
	retries int
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// ResilientOption configures a Resilient port.
type ResilientOption func(*Resilient)

// WithLimiter sets the per-provider:model token-bucket limiter. A nil
// limiter (the default) disables throttling.
func WithLimiter(l *ratelimit.Limiter) ResilientOption {
	return func(r *Resilient) { r.limiter = l }
}

// WithRetryPolicy overrides the backoff policy and max attempt count.
// Defaults to backoff.DefaultPolicy() and 3 attempts.
func WithRetryPolicy(policy backoff.BackoffPolicy, maxAttempts int) ResilientOption {
	return func(r *Resilient) { r.policy = policy; r.retries = maxAttempts }
}

// WithMetrics records LLM request counters/histograms on every call.
func WithMetrics(m *observability.Metrics) ResilientOption {
	return func(r *Resilient) { r.metrics = m }
}

// WithTracer wraps every call in an llm.<provider> span.
func WithTracer(t *observability.Tracer) ResilientOption {
	return func(r *Resilient) { r.tracer = t }
}

// NewResilient builds a Resilient port over next, applying opts.
func NewResilient(next ChatCompletion, opts ...ResilientOption) *Resilient {
	r := &Resilient{next: next, policy: backoff.DefaultPolicy(), retries: 3}
	for _, opt := range opts {
		opt(r)
	}
	if r.retries < 1 {
		r.retries = 1
	}
	return r
}

func (r *Resilient) throttleKey(opts Options) string {
	return ratelimit.CompositeKey(string(opts.Provider), opts.Model)
}

// wait blocks until the limiter admits the call or ctx is cancelled. A nil
// limiter never throttles.
func (r *Resilient) wait(ctx context.Context, key string) error {
	if r.limiter == nil {
		return nil
	}
	for !r.limiter.Allow(key) {
		d := r.limiter.WaitTime(key)
		if d <= 0 {
			d = time.Millisecond
		}
		if err := backoff.SleepWithContext(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// retryable reports whether a *models.Failure is worth another attempt. Only
// the port's own transient-failure kind qualifies; a provider that isn't
// configured or a malformed request is deterministic, so retrying it would
// just burn the attempt budget for no benefit.
func retryable(f *models.Failure) bool {
	return f != nil && f.Kind == models.ErrLLMError
}

// call runs fn up to r.retries times with exponential backoff between
// attempts, stopping early on a non-retryable failure or a cancelled
// context. It centralizes the throttle-retry-instrument wrapping shared by
// DecideWithTools and DecidePlain.
func (r *Resilient) call(ctx context.Context, opts Options, fn func(ctx context.Context) *models.Failure) *models.Failure {
	key := r.throttleKey(opts)
	var lastFailure *models.Failure

	for attempt := 1; attempt <= r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.NewFailure(models.ErrLLMError, "context cancelled: %v", err)
		}
		if err := r.wait(ctx, key); err != nil {
			return models.NewFailure(models.ErrLLMError, "rate limiter wait cancelled: %v", err)
		}

		if f := fn(ctx); f != nil {
			lastFailure = f
			if !retryable(f) || attempt == r.retries {
				return f
			}
			if err := backoff.SleepWithBackoff(ctx, r.policy, attempt); err != nil {
				return models.NewFailure(models.ErrLLMError, "context cancelled during backoff: %v", err)
			}
			continue
		}
		return nil
	}
	return lastFailure
}

func (r *Resilient) DecideWithTools(ctx context.Context, system, user string, tools []ToolSchema, opts Options) ([]models.ToolCall, *models.Failure) {
	start := time.Now()
	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.TraceLLMRequest(ctx, string(opts.Provider), opts.Model)
		defer span.End()
	}

	var calls []models.ToolCall
	failure := r.call(ctx, opts, func(ctx context.Context) *models.Failure {
		c, f := r.next.DecideWithTools(ctx, system, user, tools, opts)
		calls = c
		return f
	})

	r.record(opts, start, failure)
	if failure != nil {
		return nil, failure
	}
	return calls, nil
}

func (r *Resilient) DecidePlain(ctx context.Context, system, user string, opts Options) (string, *models.Failure) {
	start := time.Now()
	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.TraceLLMRequest(ctx, string(opts.Provider), opts.Model)
		defer span.End()
	}

	var text string
	failure := r.call(ctx, opts, func(ctx context.Context) *models.Failure {
		t, f := r.next.DecidePlain(ctx, system, user, opts)
		text = t
		return f
	})

	r.record(opts, start, failure)
	if failure != nil {
		return "", failure
	}
	return text, nil
}

func (r *Resilient) record(opts Options, start time.Time, failure *models.Failure) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if failure != nil {
		status = "error"
	}
	r.metrics.RecordLLMRequest(string(opts.Provider), opts.Model, status, time.Since(start).Seconds(), 0, 0)
}

var _ ChatCompletion = (*Resilient)(nil)
