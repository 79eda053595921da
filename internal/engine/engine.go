// Package engine defines the Game Engine interface shared by the five
// experiment kinds and the factory that dispatches on experiment_type
// (spec.md §4.C).
package engine

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/models"
)

// PublicState is the shared view returned by get_public_state, common to
// every engine (§4.C.6); engines attach their own payload under Extra.
type PublicState struct {
	Status             models.SessionStatus `json:"status"`
	Participants        []ParticipantView    `json:"participants"`
	ExperimentConfig     models.SessionConfig `json:"experiment_config"`
	ExperimentType       models.ExperimentType `json:"experiment_type"`
	Timer                models.TimerState     `json:"timer"`
	ExperimentDescription string               `json:"experiment_description"`
	Extra                map[string]any        `json:"extra,omitempty"`
}

// ParticipantView is one row of a public-state participant listing; extra
// fields are gated by config.AwarenessDashboard.
type ParticipantView struct {
	ParticipantCode models.ParticipantCode `json:"participant_code"`
	DisplayName     string                 `json:"display_name"`
	Money           *string                `json:"money,omitempty"`
	OrdersProgress  *string                `json:"orders_progress,omitempty"`
	ProductionCount *int                   `json:"production_count,omitempty"`
}

// PrivateState is one participant's own view, kind-specific via Extra.
type PrivateState struct {
	ParticipantCode models.ParticipantCode `json:"participant_code"`
	Extra           map[string]any         `json:"extra"`
}

// Engine is the shared interface every experiment kind implements (§4.C).
// All operations return a machine-readable *models.Failure on error rather
// than a bare error, per spec.md §7's propagation policy.
type Engine interface {
	ExperimentType() models.ExperimentType

	CreateSession(ctx context.Context, researcher string, config models.SessionConfig) (*models.Session, *models.Failure)
	AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure)
	GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*PrivateState, *models.Failure)
	GetPublicState(ctx context.Context, session models.SessionCode) (*PublicState, *models.Failure)
	SendMessage(ctx context.Context, session models.SessionCode, sender models.ParticipantCode, recipient string, content string) (*models.Message, *models.Failure)
	StartSession(ctx context.Context, session models.SessionCode) *models.Failure
	EndSession(ctx context.Context, session models.SessionCode) *models.Failure
}

// Factory resolves the Engine for a session's experiment_type.
type Factory struct {
	engines map[models.ExperimentType]Engine
}

// NewFactory builds a Factory from the given engines, keyed by their own
// ExperimentType().
func NewFactory(engines ...Engine) *Factory {
	f := &Factory{engines: make(map[models.ExperimentType]Engine, len(engines))}
	for _, e := range engines {
		f.engines[e.ExperimentType()] = e
	}
	return f
}

// For returns the engine registered for kind, or nil if none is registered
// (custom_* kinds with no engine are rejected by the caller as InvalidState).
func (f *Factory) For(kind models.ExperimentType) (Engine, bool) {
	e, ok := f.engines[kind]
	return e, ok
}
