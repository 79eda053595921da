// Package config loads this runtime's layered configuration: a YAML file
// with environment-variable expansion, overridden by a handful of
// well-known environment variables for the secrets a committed file should
// never carry (API keys, the store DSN).
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/nexus/internal/backoff"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Config is the root configuration structure.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

// StoreConfig configures the Store Port backend (spec.md §3).
type StoreConfig struct {
	// Driver selects the Store Port implementation: "postgres" or "memory".
	// "memory" is for local debugging (cmd/run-agent); it has no durability.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LLMConfig configures the ChatCompletion Port's provider adapters.
type LLMConfig struct {
	DefaultProvider llm.Provider                    `yaml:"default_provider"`
	DefaultModel    string                           `yaml:"default_model"`
	Providers       map[llm.Provider]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig holds one provider's credentials and default model.
// APIKey is read from the environment (see applyEnvOverrides), never from
// the file, so a committed config never carries a secret.
type LLMProviderConfig struct {
	APIKey       string `yaml:"-"`
	DefaultModel string `yaml:"default_model"`
}

// SessionConfig carries the defaults bootstrapSession-style callers apply
// when a researcher-facing transport doesn't supply its own
// models.SessionConfig for a newly created session.
type SessionConfig struct {
	RoundDuration      time.Duration             `yaml:"round_duration"`
	CommunicationLevel models.CommunicationLevel `yaml:"communication_level"`
	AwarenessDashboard bool                      `yaml:"awareness_dashboard"`
	TickInterval       time.Duration             `yaml:"tick_interval"`
	PassiveJitter      time.Duration             `yaml:"passive_jitter"`
}

// LoggingConfig configures the slog handler built in cmd/ entrypoints and
// the per-agent NDJSON sink base directory (spec.md §4.I).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	LogDir string `yaml:"log_dir"`
}

// MetricsConfig configures the Prometheus exposition endpoint. This is
// instrumentation the operator scrapes, not the researcher-facing session
// transport spec.md's Non-goals exclude.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RateLimitConfig configures the token bucket internal/llm.Resilient applies
// to the ChatCompletion port, per spec.md §1: "It does not rate-limit LLM
// calls; that is the ChatCompletion port's contract."
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// RetryConfig configures internal/backoff's policy for ChatCompletion and
// Store Port transient failures.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	InitialMs   float64 `yaml:"initial_ms"`
	MaxMs       float64 `yaml:"max_ms"`
	Factor      float64 `yaml:"factor"`
	Jitter      float64 `yaml:"jitter"`
}

// Policy converts RetryConfig into an internal/backoff.BackoffPolicy.
func (r RetryConfig) Policy() backoff.BackoffPolicy {
	jitter := r.Jitter
	if jitter == 0 {
		jitter = 0.2
	}
	return backoff.BackoffPolicy{
		InitialMs: r.InitialMs,
		MaxMs:     r.MaxMs,
		Factor:    r.Factor,
		Jitter:    jitter,
	}
}

// Load reads path, expands ${VAR} environment references, decodes strict
// YAML (unknown keys are an error), applies defaults, layers in the
// environment-variable overrides reserved for secrets, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected a single YAML document")
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = llm.ProviderOpenAI
	}
	if cfg.Session.CommunicationLevel == "" {
		cfg.Session.CommunicationLevel = models.CommChat
	}
	if cfg.Session.TickInterval == 0 {
		cfg.Session.TickInterval = 10 * time.Second
	}
	if cfg.Session.PassiveJitter == 0 {
		cfg.Session.PassiveJitter = 5 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialMs == 0 {
		cfg.Retry.InitialMs = 200
	}
	if cfg.Retry.MaxMs == 0 {
		cfg.Retry.MaxMs = 10_000
	}
	if cfg.Retry.Factor == 0 {
		cfg.Retry.Factor = 2
	}
}

// applyEnvOverrides layers in the environment variables that carry secrets
// and the backing-store DSN, so neither needs to appear in a committed
// config file. cmd/run-agent's OPENAI_API_KEY/ANTHROPIC_API_KEY convention
// is the same one used here.
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("NEXUS_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = map[llm.Provider]LLMProviderConfig{}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p := cfg.LLM.Providers[llm.ProviderOpenAI]
		p.APIKey = key
		cfg.LLM.Providers[llm.ProviderOpenAI] = p
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		p := cfg.LLM.Providers[llm.ProviderAnthropic]
		p.APIKey = key
		cfg.LLM.Providers[llm.ProviderAnthropic] = p
	}
}

func validate(cfg *Config) error {
	var issues []string

	if cfg.Store.Driver != "memory" && cfg.Store.Driver != "postgres" {
		issues = append(issues, `store.driver must be "memory" or "postgres"`)
	}
	if cfg.Store.Driver == "postgres" && strings.TrimSpace(cfg.Store.DSN) == "" {
		issues = append(issues, "store.dsn is required when store.driver is \"postgres\" (set it via NEXUS_STORE_DSN)")
	}
	switch cfg.Session.CommunicationLevel {
	case models.CommChat, models.CommBroadcast, models.CommNoChat:
	default:
		issues = append(issues, `session.communication_level must be "chat", "broadcast", or "no_chat"`)
	}
	if cfg.Session.TickInterval <= 0 {
		issues = append(issues, "session.tick_interval must be positive")
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		issues = append(issues, "rate_limit.requests_per_second must be >= 0")
	}
	if cfg.Retry.MaxAttempts < 1 {
		issues = append(issues, "retry.max_attempts must be >= 1")
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}
	return nil
}
