// Package llm implements the ChatCompletion Port (spec.md §4.B): a narrow
// adapter over LLM providers that returns either tool-calls (function mode)
// or a JSON plan (plain mode), and never raises — every failure surfaces as
// a typed models.Failure{Kind: LLMError}.
package llm

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/models"
)

// Provider selects which backend answers decide_with_tools/decide_plain.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Mode selects function-calling vs free-text JSON plan extraction.
type Mode string

const (
	ModeFunction Mode = "function"
	ModeJSON     Mode = "json"
)

// ToolSchema describes one callable tool for function-calling mode, shared
// across both provider dialects (internal/tools emits the same schema in
// OpenAI and Anthropic shape from this type).
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// Options configures one ChatCompletion call.
type Options struct {
	Provider    Provider
	Mode        Mode
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultOptions mirrors spec.md §4.B's stated default (function mode).
func DefaultOptions() Options {
	return Options{
		Mode:        ModeFunction,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// ChatCompletion is the Port every Agent Controller tick calls through.
type ChatCompletion interface {
	// DecideWithTools returns the list of tool calls the model chose; zero
	// calls is a valid, silent outcome (spec.md §4.E's fallback rule).
	DecideWithTools(ctx context.Context, system, user string, tools []ToolSchema, opts Options) ([]models.ToolCall, *models.Failure)

	// DecidePlain returns the raw reply text, expected to contain a JSON
	// plan (spec.md §6.2). Callers run ExtractPlan on the result.
	DecidePlain(ctx context.Context, system, user string, opts Options) (string, *models.Failure)
}

// Router dispatches to the configured provider adapter by Options.Provider,
// choosing one by which API key is present when Options.Provider is empty
// (spec.md §4.B: "chosen by which API key is present; explicit selection
// preferred when both").
type Router struct {
	openai    ChatCompletion
	anthropic ChatCompletion
}

// NewRouter builds a Router. Either adapter may be nil if its API key was
// not configured; DecideWithTools/DecidePlain return LLMError if the
// resolved provider has no adapter.
func NewRouter(openaiAdapter, anthropicAdapter ChatCompletion) *Router {
	return &Router{openai: openaiAdapter, anthropic: anthropicAdapter}
}

func (r *Router) resolve(p Provider) (ChatCompletion, Provider, *models.Failure) {
	switch p {
	case ProviderOpenAI:
		if r.openai == nil {
			return nil, p, models.NewFailure(models.ErrLLMError, "openai provider not configured")
		}
		return r.openai, p, nil
	case ProviderAnthropic:
		if r.anthropic == nil {
			return nil, p, models.NewFailure(models.ErrLLMError, "anthropic provider not configured")
		}
		return r.anthropic, p, nil
	case "":
		if r.openai != nil {
			return r.openai, ProviderOpenAI, nil
		}
		if r.anthropic != nil {
			return r.anthropic, ProviderAnthropic, nil
		}
		return nil, p, models.NewFailure(models.ErrLLMError, "no provider configured")
	default:
		return nil, p, models.NewFailure(models.ErrLLMError, "unknown provider %q", p)
	}
}

func (r *Router) DecideWithTools(ctx context.Context, system, user string, tools []ToolSchema, opts Options) ([]models.ToolCall, *models.Failure) {
	adapter, resolved, f := r.resolve(opts.Provider)
	if f != nil {
		return nil, f
	}
	opts.Provider = resolved
	return adapter.DecideWithTools(ctx, system, user, tools, opts)
}

func (r *Router) DecidePlain(ctx context.Context, system, user string, opts Options) (string, *models.Failure) {
	adapter, resolved, f := r.resolve(opts.Provider)
	if f != nil {
		return "", f
	}
	opts.Provider = resolved
	return adapter.DecidePlain(ctx, system, user, opts)
}

var _ ChatCompletion = (*Router)(nil)
