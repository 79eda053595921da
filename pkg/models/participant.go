package models

import "github.com/shopspring/decimal"

// ParticipantType distinguishes a human from an LLM-driven agent.
type ParticipantType string

const (
	ParticipantHuman   ParticipantType = "human"
	ParticipantAIAgent ParticipantType = "ai_agent"
)

// WordGuessingRole is the role assigned to a WordGuessing participant.
type WordGuessingRole string

const (
	RoleHinter  WordGuessingRole = "hinter"
	RoleGuesser WordGuessingRole = "guesser"
)

// Initiative is the HiddenProfiles scheduling class (§4.F, §GLOSSARY).
type Initiative string

const (
	InitiativeActive  Initiative = "active"
	InitiativePassive Initiative = "passive"
)

// LoginStatus tracks a participant's connection state, used by
// get_public_state's awareness-gated view.
type LoginStatus string

const (
	LoginNotLoggedIn LoginStatus = "not_logged_in"
	LoginLoggedIn    LoginStatus = "logged_in"
	LoginActive      LoginStatus = "active"
	LoginDisconnected LoginStatus = "disconnected"
)

// RankingEntry is one line of a participant's current merged ranking
// snapshot (EssayRanking).
type RankingEntry struct {
	EssayID   string `json:"essay_id"`
	Rank      int    `json:"rank"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Participant is a single identity within a session; most fields are only
// meaningful for the experiment kind that uses them.
type Participant struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantCode ParticipantCode `json:"participant_code"`
	SessionCode     SessionCode     `json:"session_code"`
	Type            ParticipantType `json:"type"`

	// ShapeFactory
	SpecialtyShape          string          `json:"specialty_shape,omitempty"`
	Money                   decimal.Decimal `json:"money"`
	Orders                  []string        `json:"orders,omitempty"`
	OrdersCompleted         int             `json:"orders_completed"`
	SpecialtyProductionUsed int             `json:"specialty_production_used"`

	// WordGuessing
	Role          WordGuessingRole `json:"role,omitempty"`
	AssignedWords []string         `json:"assigned_words,omitempty"`
	Score         int              `json:"score"`
	CurrentRound  int              `json:"current_round"`

	// HiddenProfiles
	Initiative Initiative `json:"initiative,omitempty"`

	// EssayRanking
	CurrentRankings []RankingEntry `json:"current_rankings,omitempty"`

	LoginStatus LoginStatus `json:"login_status"`
}
