// Command run-agent launches a single debugging agent against a session
// already created through the researcher-facing transport (spec.md §6.5).
// It is not the production deployment: a real installation embeds the
// library behind an HTTP/WS transport process and runs one Agent Manager
// per server, not one process per agent.
//
// Environment variables select the LLM provider's API key:
//
//   - OPENAI_API_KEY: used when --llm-provider is "openai" (the default).
//   - ANTHROPIC_API_KEY: used when --llm-provider is "anthropic".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/backoff"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/controller"
	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/engine/daytrader"
	"github.com/haasonsaas/nexus/internal/engine/essayranking"
	"github.com/haasonsaas/nexus/internal/engine/hiddenprofiles"
	"github.com/haasonsaas/nexus/internal/engine/shapefactory"
	"github.com/haasonsaas/nexus/internal/engine/wordguessing"
	"github.com/haasonsaas/nexus/internal/events"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/manager"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/ratelimit"
	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/internal/tools"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Exit codes per spec.md §6.5.
const (
	exitConfig    = 1
	exitTransport = 2
)

type runFlags struct {
	participant    string
	session        string
	experimentType string
	provider       string
	model          string
	intervalSecs   int
	minutes        int
	useMemory      bool
	maxMemory      int
	useLLM         bool
	logDir         string
	retryAttempts  int
	rateLimitRPS   float64
	rateLimitBurst int
	trace          bool
	configPath     string
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		var exitErr exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		slog.Error("run-agent failed", "error", err)
		os.Exit(exitConfig)
	}
}

// exitCodeError carries the specific exit code a failure should produce,
// distinguishing a configuration error (1) from a transport error (2) per
// spec.md §6.5.
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

func buildRootCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run-agent",
		Short: "Run one experiment agent against an existing session, for manual debugging",
		Long: `run-agent launches a single agent's Agent Manager loop in-process.

It is a debugging aid, not the production deployment: it talks to an
in-memory Store Port, so --session must name a session created earlier in
this same process run (there is no shared backing store to join).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.participant, "participant", "", "participant code (required)")
	f.StringVar(&flags.session, "session", "", "session code (required)")
	f.StringVar(&flags.experimentType, "experiment-type", string(models.ExperimentShapeFactory), "shapefactory|daytrader|essayranking|wordguessing|hiddenprofiles")
	f.StringVar(&flags.provider, "llm-provider", string(llm.ProviderOpenAI), "openai|anthropic")
	f.StringVar(&flags.model, "model", "", "model name override (defaults to the provider adapter's default)")
	f.IntVar(&flags.intervalSecs, "interval", 10, "seconds between decide cycles")
	f.IntVar(&flags.minutes, "minutes", 15, "maximum run duration in minutes")
	f.BoolVar(&flags.useMemory, "memory", false, "carry conversation history across ticks")
	f.IntVar(&flags.maxMemory, "max-memory", 20, "maximum conversation history entries when --memory is set")
	f.BoolVar(&flags.useLLM, "llm", false, "call the configured LLM provider; without it the agent ticks with an always-empty plan")
	f.StringVar(&flags.logDir, "log-dir", "", "base directory for per-agent log sinks (§4.I); unset disables sinks")
	f.IntVar(&flags.retryAttempts, "llm-retry-attempts", 3, "max attempts the ChatCompletion port makes on a retryable LLM failure")
	f.Float64Var(&flags.rateLimitRPS, "llm-rate-limit-rps", 0, "token-bucket refill rate for the ChatCompletion port, per provider:model pair (0 disables throttling)")
	f.IntVar(&flags.rateLimitBurst, "llm-rate-limit-burst", 1, "token-bucket burst size when --llm-rate-limit-rps is set")
	f.BoolVar(&flags.trace, "trace", false, "emit OpenTelemetry spans for each tick, LLM call, and tool dispatch to stderr")
	f.StringVar(&flags.configPath, "config", "", "optional YAML config file (internal/config); CLI flags override its values when explicitly set")
	cmd.MarkFlagRequired("participant")
	cmd.MarkFlagRequired("session")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, flags *runFlags) error {
	var fileCfg *config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return exitCodeError{exitConfig, fmt.Errorf("--config: %w", err)}
		}
		fileCfg = loaded
		applyFileConfig(cmd, flags, fileCfg)
		if level, ok := parseLogLevel(fileCfg.Logging.Level); ok {
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		}
	}

	experimentType := models.ExperimentType(flags.experimentType)
	st := memory.New()
	factory := engine.NewFactory(
		shapefactory.New(st),
		daytrader.New(st),
		essayranking.New(st),
		wordguessing.New(st),
		hiddenprofiles.New(st),
	)

	session := models.SessionCode(flags.session)
	participant := models.ParticipantCode(flags.participant)
	if err := bootstrapSession(ctx, factory, experimentType, session, participant); err != nil {
		return exitCodeError{exitConfig, err}
	}

	metrics := observability.NewMetrics()
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName: "run-agent",
		Writer:      traceWriter(flags.trace),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	chat, err := buildChatCompletion(flags, fileCfg, metrics, tracer)
	if err != nil {
		return exitCodeError{exitConfig, err}
	}

	bus := events.NewBus(nil, slog.Default().With("component", "events"))
	dispatcher := tools.NewDispatcher(st, factory)
	ctrl := controller.New(st, factory, chat, dispatcher, bus)
	mgr := manager.New(st, ctrl, manager.WithLogDir(flags.logDir))

	maxMemory := 0
	if flags.useMemory {
		maxMemory = flags.maxMemory
	}
	systemPrompt := fmt.Sprintf("You are participant %s in a %s experiment.", participant, experimentType)
	opts := llm.DefaultOptions()
	opts.Provider = llm.Provider(flags.provider)
	opts.Model = flags.model

	if f := mgr.Start(ctx, session, participant, experimentType, models.InitiativeActive,
		time.Duration(flags.intervalSecs)*time.Second, systemPrompt, maxMemory, opts); f != nil {
		return exitCodeError{exitTransport, errors.New(f.Error())}
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-runCtx.Done():
		slog.Info("run-agent stopping: signal received")
	case <-time.After(time.Duration(flags.minutes) * time.Minute):
		slog.Info("run-agent stopping: max duration reached")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	mgr.Stop(stopCtx, session, participant)
	return nil
}

// bootstrapSession stands in for the researcher-facing transport this debug
// binary has no access to: since its Store Port is private to this process,
// there is no pre-existing session to join, so it creates one with
// reasonable defaults for the chosen experiment kind, under its own
// randomly generated session code, then adds the participant to it. The
// caller's --session flag is kept only as the human-facing label logged
// alongside it; the Store Port is always the source of truth for the code
// actually used.
func bootstrapSession(ctx context.Context, factory *engine.Factory, experimentType models.ExperimentType, session models.SessionCode, participant models.ParticipantCode) error {
	eng, ok := factory.For(experimentType)
	if !ok {
		return fmt.Errorf("unknown experiment type %q", experimentType)
	}
	sess, f := eng.CreateSession(ctx, "run-agent-debug", defaultSessionConfig(experimentType))
	if f != nil {
		return fmt.Errorf("create session: %s", f.Error())
	}
	if _, f := eng.AddParticipant(ctx, sess.SessionCode, participant, models.ParticipantAIAgent); f != nil {
		return fmt.Errorf("add participant: %s", f.Error())
	}
	if sess.SessionCode != session {
		slog.Warn("run-agent assigned its own session code; --session is informational only in this debug mode",
			"requested", session, "actual", sess.SessionCode)
	}
	return nil
}

func defaultSessionConfig(experimentType models.ExperimentType) models.SessionConfig {
	cfg := models.SessionConfig{
		CommunicationLevel: models.CommChat,
	}
	switch experimentType {
	case models.ExperimentShapeFactory:
		cfg.StartingMoney = 1000
		cfg.MinTradePrice = 1
		cfg.MaxTradePrice = 100
		cfg.MaxProductionNum = 10
		cfg.ProductionTime = 1
	case models.ExperimentDayTrader:
		cfg.StartingMoney = 1000
		cfg.MinTradePrice = 1
		cfg.MaxTradePrice = 100
	}
	return cfg
}

// applyFileConfig layers --config values under the CLI flags: a flag the
// caller explicitly set always wins, so --config can supply a shared
// baseline (session defaults, retry/rate-limit policy) without fighting a
// one-off override on the command line.
func applyFileConfig(cmd *cobra.Command, flags *runFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if !changed("llm-provider") && cfg.LLM.DefaultProvider != "" {
		flags.provider = string(cfg.LLM.DefaultProvider)
	}
	if !changed("model") && cfg.LLM.DefaultModel != "" {
		flags.model = cfg.LLM.DefaultModel
	}
	if !changed("interval") && cfg.Session.TickInterval > 0 {
		flags.intervalSecs = int(cfg.Session.TickInterval.Seconds())
	}
	if !changed("log-dir") && cfg.Logging.LogDir != "" {
		flags.logDir = cfg.Logging.LogDir
	}
	if !changed("llm-retry-attempts") && cfg.Retry.MaxAttempts > 0 {
		flags.retryAttempts = cfg.Retry.MaxAttempts
	}
	if !changed("llm-rate-limit-rps") && cfg.RateLimit.RequestsPerSecond > 0 {
		flags.rateLimitRPS = cfg.RateLimit.RequestsPerSecond
		flags.rateLimitBurst = cfg.RateLimit.BurstSize
	}
}

// parseLogLevel maps internal/config's logging.level string onto an
// slog.Level; an empty or unrecognized value leaves the default unchanged.
func parseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// buildChatCompletion resolves the configured provider adapter and wraps it
// in llm.Resilient: per spec.md §1 the core never rate-limits or retries an
// LLM call itself, so every adapter this binary hands to the Agent Manager
// goes through the port's own throttle-retry-instrument policy, including
// nullChatCompletion when --llm is absent.
func buildChatCompletion(flags *runFlags, fileCfg *config.Config, metrics *observability.Metrics, tracer *observability.Tracer) (llm.ChatCompletion, error) {
	var adapter llm.ChatCompletion
	if !flags.useLLM {
		adapter = nullChatCompletion{}
	} else {
		switch llm.Provider(flags.provider) {
		case llm.ProviderOpenAI:
			key := providerAPIKey(fileCfg, llm.ProviderOpenAI, "OPENAI_API_KEY")
			if key == "" {
				return nil, errors.New("--llm requires OPENAI_API_KEY (or llm.providers.openai in --config) for --llm-provider=openai")
			}
			adapter = llm.NewOpenAIProvider(key, flags.model)
		case llm.ProviderAnthropic:
			key := providerAPIKey(fileCfg, llm.ProviderAnthropic, "ANTHROPIC_API_KEY")
			if key == "" {
				return nil, errors.New("--llm requires ANTHROPIC_API_KEY (or llm.providers.anthropic in --config) for --llm-provider=anthropic")
			}
			adapter = llm.NewAnthropicProvider(key, flags.model)
		default:
			return nil, fmt.Errorf("unknown --llm-provider %q", flags.provider)
		}
	}

	policy := backoff.DefaultPolicy()
	if fileCfg != nil {
		policy = fileCfg.Retry.Policy()
	}
	opts := []llm.ResilientOption{
		llm.WithRetryPolicy(policy, flags.retryAttempts),
		llm.WithMetrics(metrics),
		llm.WithTracer(tracer),
	}
	if flags.rateLimitRPS > 0 {
		opts = append(opts, llm.WithLimiter(ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: flags.rateLimitRPS,
			BurstSize:         flags.rateLimitBurst,
			Enabled:           true,
		})))
	}
	return llm.NewResilient(adapter, opts...), nil
}

// providerAPIKey prefers the environment variable (the same convention
// cmd/run-agent has always used) and falls back to the file config's
// per-provider key so --config alone is enough to run without exporting
// secrets into the shell.
func providerAPIKey(fileCfg *config.Config, provider llm.Provider, envVar string) string {
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	if fileCfg == nil {
		return ""
	}
	return fileCfg.LLM.Providers[provider].APIKey
}

// traceWriter returns stderr when tracing is enabled, or nil to keep the
// tracer a no-op (observability.NewTracer treats a nil Writer as "no
// collector configured").
func traceWriter(enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	return os.Stderr
}

// nullChatCompletion is the --llm-absent policy: every tick decides on an
// empty plan, which §4.E treats as a valid, silent turn. This lets run-agent
// exercise perception, promotion, and the tick loop's bookkeeping without
// spending API calls.
type nullChatCompletion struct{}

func (nullChatCompletion) DecideWithTools(ctx context.Context, system, user string, toolset []llm.ToolSchema, opts llm.Options) ([]models.ToolCall, *models.Failure) {
	return nil, nil
}

func (nullChatCompletion) DecidePlain(ctx context.Context, system, user string, opts llm.Options) (string, *models.Failure) {
	return `{"actions":[]}`, nil
}
