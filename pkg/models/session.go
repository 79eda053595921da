package models

import "time"

// SessionCode is the short, human-facing identifier for a session, distinct
// from its UUID so the compiler catches scope-mixing bugs at call sites.
type SessionCode string

// ParticipantCode is the short, human-facing identifier for a participant.
type ParticipantCode string

// ExperimentType selects which Game Engine governs a session.
type ExperimentType string

const (
	ExperimentShapeFactory   ExperimentType = "shapefactory"
	ExperimentDayTrader      ExperimentType = "daytrader"
	ExperimentEssayRanking   ExperimentType = "essayranking"
	ExperimentWordGuessing   ExperimentType = "wordguessing"
	ExperimentHiddenProfiles ExperimentType = "hiddenprofiles"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionIdle          SessionStatus = "idle"
	SessionSetupComplete SessionStatus = "setup_complete"
	SessionActive        SessionStatus = "session_active"
	SessionPaused        SessionStatus = "session_paused"
	SessionCompleted     SessionStatus = "session_completed"
)

// CommunicationLevel is the session-wide messaging policy enforced by the
// Tool Surface's communication-level filter.
type CommunicationLevel string

const (
	CommChat      CommunicationLevel = "chat"
	CommBroadcast CommunicationLevel = "broadcast"
	CommNoChat    CommunicationLevel = "no_chat"
)

// SessionConfig is the bag of experiment-specific options carried on a
// session. The well-known keys are promoted to fields; kind-specific extras
// live in Extra. HiddenProfiles votes and participant initiatives are also
// carried here, per spec: they are session-config-resident, not their own
// table.
type SessionConfig struct {
	RoundDuration       time.Duration      `json:"roundDuration"`
	CommunicationLevel  CommunicationLevel `json:"communicationLevel"`
	AwarenessDashboard  bool               `json:"awarenessDashboard"`

	// ShapeFactory
	StartingMoney    int64 `json:"startingMoney,omitempty"`
	SpecialtyCost    int64 `json:"specialtyCost,omitempty"`
	RegularCost      int64 `json:"regularCost,omitempty"`
	MinTradePrice    int64 `json:"minTradePrice,omitempty"`
	MaxTradePrice    int64 `json:"maxTradePrice,omitempty"`
	ShapesPerOrder   int   `json:"shapesPerOrder,omitempty"`
	IncentiveMoney   int64 `json:"incentiveMoney,omitempty"`
	MaxProductionNum int   `json:"maxProductionNum,omitempty"`
	ProductionTime   int   `json:"productionTimeSeconds,omitempty"`

	// HiddenProfiles
	HiddenProfiles HiddenProfilesConfig `json:"hiddenProfiles,omitempty"`

	// ParticipantInitiatives: participant_code -> active|passive, cleared by
	// the Agent Manager when an agent stops.
	ParticipantInitiatives map[ParticipantCode]string `json:"participantInitiatives,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// HiddenProfilesConfig holds the vote ledger and reading-phase flags.
type HiddenProfilesConfig struct {
	PublicInfoSet   bool                              `json:"publicInfoSet"`
	Votes           map[ParticipantCode]string         `json:"votes,omitempty"`
	ReadingComplete bool                                `json:"readingComplete"`
}

// Session is the top-level record a researcher creates and that every other
// entity is scoped to.
type Session struct {
	SessionID      string         `json:"session_id"`
	SessionCode    SessionCode    `json:"session_code"`
	ExperimentType ExperimentType `json:"experiment_type"`
	Status         SessionStatus  `json:"status"`
	Config         SessionConfig  `json:"config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TimerState is the Session Timer's per-session countdown state (§4.G).
// Addressed only by SessionCode; sessions never share timer state.
type TimerState struct {
	SessionCode       SessionCode   `json:"session_code"`
	ExperimentStatus  SessionStatus `json:"experiment_status"`
	TimeRemainingSecs int           `json:"time_remaining_seconds"`
	RoundDurationMins int           `json:"round_duration_minutes"`
	RoundStartTime    time.Time     `json:"round_start_time"`
	Active            bool          `json:"active"`
}
