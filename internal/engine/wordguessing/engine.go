// Package wordguessing implements the WordGuessing Game Engine (spec.md
// §4.C.4): a balanced hinter/guesser role split and case-insensitive guess
// checking against the current round's word.
package wordguessing

import (
	"context"
	"strings"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Engine is the WordGuessing Game Engine.
type Engine struct {
	engine.Base
}

// New builds a WordGuessing engine over st.
func New(st store.Store) *Engine {
	return &Engine{Base: engine.Base{Store: st, Kind: models.ExperimentWordGuessing, Desc: "WordGuessing: hinters hold words, guessers guess them round by round."}}
}

var _ engine.Engine = (*Engine)(nil)

// AddParticipant auto-balances the hinter/guesser split: the role with fewer
// current holders is assigned, keeping the count difference at most one
// (§4.C.4). The first participant in a session is always a hinter.
func (e *Engine) AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure) {
	existing, f := e.Store.ListParticipants(ctx, session)
	if f != nil {
		return nil, f
	}
	var hinters, guessers int
	for _, p := range existing {
		switch p.Role {
		case models.RoleHinter:
			hinters++
		case models.RoleGuesser:
			guessers++
		}
	}
	role := models.RoleHinter
	if hinters > guessers {
		role = models.RoleGuesser
	}

	p := &models.Participant{
		ParticipantCode: code,
		SessionCode:     session,
		Type:            ptype,
		Role:            role,
		CurrentRound:    1,
		LoginStatus:     models.LoginNotLoggedIn,
	}
	if f := e.Store.AddParticipant(ctx, p); f != nil {
		return nil, f
	}
	return p, nil
}

// AssignWords sets a hinter's private word list (researcher/setup action,
// not part of the agent tool surface).
func (e *Engine) AssignWords(ctx context.Context, session models.SessionCode, hinter models.ParticipantCode, words []string) *models.Failure {
	p, f := e.Store.GetParticipant(ctx, session, hinter)
	if f != nil {
		return f
	}
	if p.Role != models.RoleHinter {
		return models.NewFailure(models.ErrInvalidState, "%s is not a hinter", hinter)
	}
	p.AssignedWords = words
	return e.Store.UpdateParticipant(ctx, p)
}

// GetAssignedWords is get_assigned_words (§6.1); hinter-only.
func (e *Engine) GetAssignedWords(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]string, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	if p.Role != models.RoleHinter {
		return nil, models.NewFailure(models.ErrInvalidState, "only hinters hold an assigned word list")
	}
	return p.AssignedWords, nil
}

// currentHinter returns the first hinter found in the session, mirroring the
// reference engine's single-hinter-drives-the-round assumption.
func (e *Engine) currentHinter(ctx context.Context, session models.SessionCode) (*models.Participant, *models.Failure) {
	participants, f := e.Store.ListParticipants(ctx, session)
	if f != nil {
		return nil, f
	}
	for _, p := range participants {
		if p.Role == models.RoleHinter {
			return p, nil
		}
	}
	return nil, models.NewFailure(models.ErrInvalidState, "no hinter found for current round")
}

// SubmitGuess is submit_guess (§4.C.4): guesser-only, case-insensitive
// comparison against the hinter's word at index current_round-1. Correct
// guesses increment score and advance the guesser's round.
func (e *Engine) SubmitGuess(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, guess string) (bool, int, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, participant)
	if f != nil {
		return false, 0, f
	}
	if p.Role != models.RoleGuesser {
		return false, 0, models.NewFailure(models.ErrInvalidState, "only guessers can submit guesses")
	}

	hinter, f := e.currentHinter(ctx, session)
	if f != nil {
		return false, 0, f
	}
	if p.CurrentRound < 1 || p.CurrentRound > len(hinter.AssignedWords) {
		return false, 0, models.NewFailure(models.ErrInvalidState, "no word assigned for round %d", p.CurrentRound)
	}
	current := hinter.AssignedWords[p.CurrentRound-1]
	correct := strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(current))

	if correct {
		p.Score++
	}
	p.CurrentRound++
	if f := e.Store.UpdateParticipant(ctx, p); f != nil {
		return false, 0, f
	}
	return correct, p.Score, nil
}

func (e *Engine) GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*engine.PrivateState, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, code)
	if f != nil {
		return nil, f
	}
	extra := map[string]any{
		"role":          p.Role,
		"score":         p.Score,
		"current_round": p.CurrentRound,
	}
	if p.Role == models.RoleHinter {
		extra["assigned_words"] = p.AssignedWords
	}
	return &engine.PrivateState{ParticipantCode: code, Extra: extra}, nil
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
