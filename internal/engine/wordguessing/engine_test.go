package wordguessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newSession(t *testing.T) (*Engine, models.SessionCode) {
	t.Helper()
	st := memory.New()
	e := New(st)
	sess, f := e.CreateSession(context.Background(), "researcher-1", models.SessionConfig{})
	require.Nil(t, f)
	return e, sess.SessionCode
}

func TestAddParticipant_BalancesRoles(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()

	p1, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)
	assert.Equal(t, models.RoleHinter, p1.Role, "first participant must be a hinter")

	p2, f := e.AddParticipant(ctx, session, "P2", models.ParticipantHuman)
	require.Nil(t, f)
	assert.Equal(t, models.RoleGuesser, p2.Role)

	p3, f := e.AddParticipant(ctx, session, "P3", models.ParticipantHuman)
	require.Nil(t, f)
	assert.Equal(t, models.RoleHinter, p3.Role, "balance must keep the count difference at most one")
}

func TestSubmitGuess_CaseInsensitive(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	hinter, f := e.AddParticipant(ctx, session, "H1", models.ParticipantHuman)
	require.Nil(t, f)
	guesser, f := e.AddParticipant(ctx, session, "G1", models.ParticipantAIAgent)
	require.Nil(t, f)

	require.Nil(t, e.AssignWords(ctx, session, hinter.ParticipantCode, []string{"Banana", "Kiwi"}))

	correct, score, f := e.SubmitGuess(ctx, session, guesser.ParticipantCode, "  BANANA  ")
	require.Nil(t, f)
	assert.True(t, correct)
	assert.Equal(t, 1, score)

	correct, score, f = e.SubmitGuess(ctx, session, guesser.ParticipantCode, "mango")
	require.Nil(t, f)
	assert.False(t, correct)
	assert.Equal(t, 1, score, "wrong guess must not change score")
}

func TestSubmitGuess_HinterCannotGuess(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	hinter, f := e.AddParticipant(ctx, session, "H1", models.ParticipantHuman)
	require.Nil(t, f)

	_, _, f = e.SubmitGuess(ctx, session, hinter.ParticipantCode, "anything")
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}

func TestGetAssignedWords_GuesserForbidden(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	_, f := e.AddParticipant(ctx, session, "H1", models.ParticipantHuman)
	require.Nil(t, f)
	guesser, f := e.AddParticipant(ctx, session, "G1", models.ParticipantAIAgent)
	require.Nil(t, f)

	_, f = e.GetAssignedWords(ctx, session, guesser.ParticipantCode)
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}
