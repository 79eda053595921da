// Package hiddenprofiles implements the HiddenProfiles Game Engine (spec.md
// §4.C.5): per-participant candidate documents, a shared publicInfo
// document, discussion via send_message, and an overwritable vote stored in
// session config.
package hiddenprofiles

import (
	"context"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Engine is the HiddenProfiles Game Engine.
type Engine struct {
	engine.Base
}

// New builds a HiddenProfiles engine over st.
func New(st store.Store) *Engine {
	return &Engine{Base: engine.Base{Store: st, Kind: models.ExperimentHiddenProfiles, Desc: "HiddenProfiles: read a private candidate document, discuss, then vote."}}
}

var _ engine.Engine = (*Engine)(nil)

// AddParticipant additionally classifies the participant's scheduling
// initiative (§4.C.5, §5) and records it in session config, matching the
// Agent Manager's active/passive dispatch. Initiative defaults to active;
// a researcher may override via SetInitiative during setup.
func (e *Engine) AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure) {
	p := &models.Participant{
		ParticipantCode: code,
		SessionCode:     session,
		Type:            ptype,
		Initiative:      models.InitiativeActive,
		LoginStatus:     models.LoginNotLoggedIn,
	}
	if f := e.Store.AddParticipant(ctx, p); f != nil {
		return nil, f
	}
	if f := e.Store.UpdateSessionConfig(ctx, session, func(cfg *models.SessionConfig) {
		if cfg.ParticipantInitiatives == nil {
			cfg.ParticipantInitiatives = make(map[models.ParticipantCode]string)
		}
		cfg.ParticipantInitiatives[code] = string(models.InitiativeActive)
	}); f != nil {
		return nil, f
	}
	return p, nil
}

// SetInitiative overrides a participant's scheduling class (researcher
// setup action, not on the agent tool surface).
func (e *Engine) SetInitiative(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, initiative models.Initiative) *models.Failure {
	p, f := e.Store.GetParticipant(ctx, session, participant)
	if f != nil {
		return f
	}
	p.Initiative = initiative
	if f := e.Store.UpdateParticipant(ctx, p); f != nil {
		return f
	}
	return e.Store.UpdateSessionConfig(ctx, session, func(cfg *models.SessionConfig) {
		if cfg.ParticipantInitiatives == nil {
			cfg.ParticipantInitiatives = make(map[models.ParticipantCode]string)
		}
		cfg.ParticipantInitiatives[participant] = string(initiative)
	})
}

// GetCandidateDocument returns the participant's private document (§6.1).
func (e *Engine) GetCandidateDocument(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.CandidateDocument, *models.Failure) {
	return e.Store.GetCandidateDocument(ctx, session, participant)
}

// ReadingPhaseComplete reports whether every participant has a candidate
// document and the shared publicInfo document is set — the condition that
// fans a one-shot wake-up to every agent in the session (§4.C.5).
func (e *Engine) ReadingPhaseComplete(ctx context.Context, session models.SessionCode) (bool, *models.Failure) {
	return e.Store.ReadingPhaseComplete(ctx, session)
}

// SubmitVote is submit_vote (§4.C.5); votes are overwritable and live in
// session config, not a dedicated table.
func (e *Engine) SubmitVote(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, candidateName string) *models.Failure {
	return e.Store.UpdateSessionConfig(ctx, session, func(cfg *models.SessionConfig) {
		if cfg.HiddenProfiles.Votes == nil {
			cfg.HiddenProfiles.Votes = make(map[models.ParticipantCode]string)
		}
		cfg.HiddenProfiles.Votes[participant] = candidateName
	})
}

func (e *Engine) GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*engine.PrivateState, *models.Failure) {
	doc, f := e.Store.GetCandidateDocument(ctx, session, code)
	if f != nil {
		return nil, f
	}
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	_, hasVoted := sess.Config.HiddenProfiles.Votes[code]

	return &engine.PrivateState{
		ParticipantCode: code,
		Extra: map[string]any{
			"candidate_document": doc,
			"has_voted":          hasVoted,
		},
	}, nil
}

func (e *Engine) GetPublicState(ctx context.Context, session models.SessionCode) (*engine.PublicState, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	participants, f := e.Store.ListParticipants(ctx, session)
	if f != nil {
		return nil, f
	}
	timer, f := e.Store.GetTimerState(ctx, session)
	if f != nil {
		timer = &models.TimerState{SessionCode: session, ExperimentStatus: sess.Status}
	}
	ready, f := e.Store.ReadingPhaseComplete(ctx, session)
	if f != nil {
		ready = false
	}

	return &engine.PublicState{
		Status:                sess.Status,
		Participants:          engine.AwarenessView(participants, sess.Config.AwarenessDashboard, false),
		ExperimentConfig:      sess.Config,
		ExperimentType:        sess.ExperimentType,
		Timer:                 *timer,
		ExperimentDescription: e.Desc,
		Extra:                 map[string]any{"reading_phase_complete": ready, "public_info_set": sess.Config.HiddenProfiles.PublicInfoSet},
	}, nil
}
