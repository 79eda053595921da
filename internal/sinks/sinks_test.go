package sinks

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n
}

func TestOpen_TruncatesOnStart(t *testing.T) {
	dir := t.TempDir()
	agentPath := filepath.Join(dir, "S1", "agent_P1.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(agentPath), 0o755))
	require.NoError(t, os.WriteFile(agentPath, []byte("stale line from a previous run\n"), 0o644))

	s, err := Open(dir, "S1", "P1")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, 0, countLines(t, agentPath))
}

func TestSinks_AppendsNDJSONLines(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "S1", "P1")
	require.NoError(t, err)

	require.NoError(t, s.LogAction(ActionEvent{Timestamp: time.Now(), Action: "tick", Tool: "produce_shape", Success: true}))
	require.NoError(t, s.LogAction(ActionEvent{Timestamp: time.Now(), Action: "tick", Tool: "produce_shape", Success: false, Error: "boom"}))
	require.NoError(t, s.LogLLM(LLMEntry{Timestamp: time.Now(), Direction: "request", Mode: "function", Payload: "system+user prompt"}))
	require.NoError(t, s.LogMemory(MemoryEvent{Timestamp: time.Now(), Kind: "initialized"}))

	assert.Equal(t, 2, countLines(t, filepath.Join(dir, "S1", "agent_P1.log")))
	assert.Equal(t, 1, countLines(t, filepath.Join(dir, "S1", "llm_P1.log")))
	assert.Equal(t, 1, countLines(t, filepath.Join(dir, "S1", "memory_P1.log")))
}

func TestSinks_NilReceiverIsSafe(t *testing.T) {
	var s *Sinks
	assert.NoError(t, s.LogAction(ActionEvent{Action: "tick"}))
	assert.NoError(t, s.LogLLM(LLMEntry{Direction: "request"}))
	assert.NoError(t, s.LogMemory(MemoryEvent{Kind: "initialized"}))
}
