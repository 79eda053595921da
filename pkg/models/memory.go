package models

import "time"

// MemoryRole is the speaker of one conversation-history turn.
type MemoryRole string

const (
	MemoryUser      MemoryRole = "user"
	MemoryAssistant MemoryRole = "assistant"
)

// MemoryEntry is one turn of an agent's bounded conversation history.
type MemoryEntry struct {
	Role    MemoryRole `json:"role"`
	Content string     `json:"content"`
}

// AgentMemory is the Agent Controller's per-agent state: an immutable system
// prompt plus a FIFO conversation history bounded at MaxLength entries.
type AgentMemory struct {
	SystemPrompt      string        `json:"system_prompt"`
	ConversationHistory []MemoryEntry `json:"conversation_history"`
	MaxLength         int           `json:"max_memory_length"`
}

// Append adds an entry, evicting the oldest entry if MaxLength is exceeded.
func (m *AgentMemory) Append(entry MemoryEntry) {
	m.ConversationHistory = append(m.ConversationHistory, entry)
	if m.MaxLength > 0 && len(m.ConversationHistory) > m.MaxLength {
		overflow := len(m.ConversationHistory) - m.MaxLength
		m.ConversationHistory = m.ConversationHistory[overflow:]
	}
}

// FailureRecord is one entry of an agent's bounded failure FIFO (capacity 10
// per spec §4.E step 7), used as context in the next status update.
type FailureRecord struct {
	Action    string    `json:"action"`
	Arguments any       `json:"arguments,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Cycle     int       `json:"cycle"`
}

// FailureFIFOCapacity is the fixed capacity of an agent's failure history.
const FailureFIFOCapacity = 10

// FailureHistory is a bounded FIFO of FailureRecord.
type FailureHistory struct {
	entries []FailureRecord
}

// Push appends a failure, evicting the oldest past FailureFIFOCapacity.
func (h *FailureHistory) Push(r FailureRecord) {
	h.entries = append(h.entries, r)
	if len(h.entries) > FailureFIFOCapacity {
		h.entries = h.entries[len(h.entries)-FailureFIFOCapacity:]
	}
}

// Entries returns a copy of the current failure history, oldest first.
func (h *FailureHistory) Entries() []FailureRecord {
	out := make([]FailureRecord, len(h.entries))
	copy(out, h.entries)
	return out
}
