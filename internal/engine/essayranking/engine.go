// Package essayranking implements the EssayRanking Game Engine (spec.md
// §4.C.3): partial rankings over a per-participant essay assignment, merged
// by essay_id across repeated submissions.
package essayranking

import (
	"context"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Engine is the EssayRanking Game Engine.
type Engine struct {
	engine.Base
}

// New builds an EssayRanking engine over st.
func New(st store.Store) *Engine {
	return &Engine{Base: engine.Base{Store: st, Kind: models.ExperimentEssayRanking, Desc: "EssayRanking: rank an assigned set of essays."}}
}

var _ engine.Engine = (*Engine)(nil)

// SubmitRanking is submit_ranking (§4.C.3). Ranks need not be unique across
// engine validation here — uniqueness of rank numbers is a presentation
// convention the agent is expected to follow; the hard invariant enforced is
// that every referenced essay_id belongs to the participant's assignment
// (enforced by the Store Port).
func (e *Engine) SubmitRanking(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, rankings []models.RankingEntry) (*models.Participant, *models.Failure) {
	sub := &models.RankingSubmission{
		SubmissionID:    uuid.NewString(),
		SessionCode:     session,
		ParticipantCode: participant,
		Rankings:        rankings,
	}
	return e.Store.SubmitRanking(ctx, sub)
}

// GetAssignedEssays is get_assigned_essays (§6.1), read-only.
func (e *Engine) GetAssignedEssays(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.EssayAssignment, *models.Failure) {
	return e.Store.GetAssignment(ctx, session, participant)
}

// GetEssayContent is get_essay_content (§6.1), read-only; rejects essays not
// in the participant's assignment so an agent cannot read outside its scope.
func (e *Engine) GetEssayContent(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, essayID string) (*models.Essay, *models.Failure) {
	assignment, f := e.Store.GetAssignment(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	assigned := false
	for _, id := range assignment.EssayIDs {
		if id == essayID {
			assigned = true
			break
		}
	}
	if !assigned {
		return nil, models.NewFailure(models.ErrInvalidState, "essay %s not assigned to %s", essayID, participant)
	}
	return e.Store.GetEssay(ctx, session, essayID)
}

func (e *Engine) GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*engine.PrivateState, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, code)
	if f != nil {
		return nil, f
	}
	assignment, f := e.Store.GetAssignment(ctx, session, code)
	if f != nil {
		return nil, f
	}
	return &engine.PrivateState{
		ParticipantCode: code,
		Extra: map[string]any{
			"assigned_essay_ids": assignment.EssayIDs,
			"current_rankings":   p.CurrentRankings,
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
	return &engine.PublicState{
		Status:                sess.Status,
		Participants:          engine.AwarenessView(participants, sess.Config.AwarenessDashboard, false),
		ExperimentConfig:      sess.Config,
		ExperimentType:        sess.ExperimentType,
		Timer:                 *timer,
		ExperimentDescription: e.Desc,
	}, nil
}
