// Package sinks implements the Logging Sinks (spec.md §4.I): three
// append-only, newline-delimited JSON files per agent, truncated at agent
// start so a run stays self-contained.
package sinks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ActionEvent is one line of agent_<code>.log: a tick's tool outcome.
type ActionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Tool      string    `json:"tool,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// LLMEntry is one line of llm_<code>.log: a single request or response.
type LLMEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"` // "request" | "response"
	Mode      string    `json:"mode"`
	Payload   string    `json:"payload"`
}

// MemoryEvent is one line of memory_<code>.log: a memory-state transition.
type MemoryEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // initialized | status_update | failure_summary | final_vote
	Detail    string    `json:"detail,omitempty"`
}

// Sinks holds the three log file paths for one agent. Files (§5) are opened
// and closed per call rather than held open for the agent's lifetime; Sinks
// itself carries no open file handle.
type Sinks struct {
	agentPath  string
	llmPath    string
	memoryPath string
}

// Open truncates (or creates) an agent's three log files under
// baseDir/<session_code>/ and returns a handle for appending to them.
// Truncation on start is mandatory (§4.I) so a run's logs never mix with a
// prior run's.
func Open(baseDir string, session models.SessionCode, participant models.ParticipantCode) (*Sinks, error) {
	dir := filepath.Join(baseDir, string(session))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	s := &Sinks{
		agentPath:  filepath.Join(dir, fmt.Sprintf("agent_%s.log", participant)),
		llmPath:    filepath.Join(dir, fmt.Sprintf("llm_%s.log", participant)),
		memoryPath: filepath.Join(dir, fmt.Sprintf("memory_%s.log", participant)),
	}
	for _, path := range []string{s.agentPath, s.llmPath, s.memoryPath} {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
		f.Close()
	}
	return s, nil
}

func appendLine(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(payload, '\n'))
	return err
}

// LogAction appends one line to agent_<code>.log. nil-receiver-safe so
// callers don't need to guard every call site when sinks are disabled.
func (s *Sinks) LogAction(e ActionEvent) error {
	if s == nil {
		return nil
	}
	return appendLine(s.agentPath, e)
}

// LogLLM appends one line to llm_<code>.log.
func (s *Sinks) LogLLM(e LLMEntry) error {
	if s == nil {
		return nil
	}
	return appendLine(s.llmPath, e)
}

// LogMemory appends one line to memory_<code>.log.
func (s *Sinks) LogMemory(e MemoryEvent) error {
	if s == nil {
		return nil
	}
	return appendLine(s.memoryPath, e)
}
