package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/llm"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nexus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `store: {}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.DefaultProvider)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: memory
  not_a_real_field: true
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n---\nstore:\n  driver: postgres\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single YAML document")
}

func TestLoadValidatesStoreDriver(t *testing.T) {
	path := writeConfig(t, `store:
  driver: sqlite`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	path := writeConfig(t, `store:
  driver: postgres`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
}

func TestLoadValidatesCommunicationLevel(t *testing.T) {
	path := writeConfig(t, `session:
  communication_level: telepathy`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "communication_level")
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("NEXUS_TEST_DSN", "postgres://example/db")
	path := writeConfig(t, `store:
  driver: postgres
  dsn: ${NEXUS_TEST_DSN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://example/db", cfg.Store.DSN)
}

func TestLoadAppliesEnvOverridesForSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-key")
	t.Setenv("NEXUS_STORE_DSN", "postgres://override/db")
	path := writeConfig(t, `store:
  driver: postgres
  dsn: postgres://file/db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://override/db", cfg.Store.DSN)
	assert.Equal(t, "sk-test-key", cfg.LLM.Providers[llm.ProviderOpenAI].APIKey)
}

func TestRetryConfigPolicyDefaultsJitter(t *testing.T) {
	rc := RetryConfig{InitialMs: 100, MaxMs: 1000, Factor: 2}
	policy := rc.Policy()
	assert.Equal(t, 0.2, policy.Jitter)
	assert.Equal(t, 100.0, policy.InitialMs)
}
