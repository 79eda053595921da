package hiddenprofiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newSession(t *testing.T) (*Engine, *memory.Store, models.SessionCode) {
	t.Helper()
	st := memory.New()
	e := New(st)
	sess, f := e.CreateSession(context.Background(), "researcher-1", models.SessionConfig{})
	require.Nil(t, f)
	return e, st, sess.SessionCode
}

func TestAddParticipant_DefaultsActiveInitiative(t *testing.T) {
	e, _, session := newSession(t)
	ctx := context.Background()
	p, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)
	assert.Equal(t, models.InitiativeActive, p.Initiative)

	sess, f := e.Store.GetSession(ctx, session)
	require.Nil(t, f)
	assert.Equal(t, "active", sess.Config.ParticipantInitiatives["P1"])
}

func TestReadingPhaseComplete_RequiresPublicInfoAndAllDocuments(t *testing.T) {
	e, st, session := newSession(t)
	ctx := context.Background()
	_, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)
	_, f = e.AddParticipant(ctx, session, "P2", models.ParticipantAIAgent)
	require.Nil(t, f)

	ready, f := e.ReadingPhaseComplete(ctx, session)
	require.Nil(t, f)
	assert.False(t, ready)

	require.Nil(t, e.Store.SetPublicInfo(ctx, session))
	ready, f = e.ReadingPhaseComplete(ctx, session)
	require.Nil(t, f)
	assert.False(t, ready, "public info alone is not enough")

	st.SeedCandidateDocument(&models.CandidateDocument{SessionCode: session, ParticipantCode: "P1", CandidateName: "Alice", Text: "doc1"})
	ready, f = e.ReadingPhaseComplete(ctx, session)
	require.Nil(t, f)
	assert.False(t, ready, "must wait for every participant's document")

	st.SeedCandidateDocument(&models.CandidateDocument{SessionCode: session, ParticipantCode: "P2", CandidateName: "Bob", Text: "doc2"})
	ready, f = e.ReadingPhaseComplete(ctx, session)
	require.Nil(t, f)
	assert.True(t, ready)
}

func TestSubmitVote_Overwritable(t *testing.T) {
	e, _, session := newSession(t)
	ctx := context.Background()
	p, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	require.Nil(t, e.SubmitVote(ctx, session, p.ParticipantCode, "Alice"))
	require.Nil(t, e.SubmitVote(ctx, session, p.ParticipantCode, "Bob"))

	sess, f := e.Store.GetSession(ctx, session)
	require.Nil(t, f)
	assert.Equal(t, "Bob", sess.Config.HiddenProfiles.Votes[p.ParticipantCode])
}
