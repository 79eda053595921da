package essayranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newFixture(t *testing.T) (*Engine, *memory.Store, models.SessionCode) {
	t.Helper()
	st := memory.New()
	e := New(st)
	sess, f := e.CreateSession(context.Background(), "researcher-1", models.SessionConfig{})
	require.Nil(t, f)

	st.SeedEssay(sess.SessionCode, &models.Essay{EssayID: "e1", Title: "One", Text: "essay one"})
	st.SeedEssay(sess.SessionCode, &models.Essay{EssayID: "e2", Title: "Two", Text: "essay two"})
	st.SeedAssignment(&models.EssayAssignment{SessionCode: sess.SessionCode, ParticipantCode: "P1", EssayIDs: []string{"e1", "e2"}})

	return e, st, sess.SessionCode
}

func TestSubmitRanking_MergesByEssayID(t *testing.T) {
	e, _, session := newFixture(t)
	ctx := context.Background()
	_, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	_, f = e.SubmitRanking(ctx, session, "P1", []models.RankingEntry{{EssayID: "e1", Rank: 1}})
	require.Nil(t, f)
	p, f := e.SubmitRanking(ctx, session, "P1", []models.RankingEntry{{EssayID: "e2", Rank: 1, Reasoning: "better argument"}, {EssayID: "e1", Rank: 2}})
	require.Nil(t, f)

	assert.Len(t, p.CurrentRankings, 2)
	byID := map[string]models.RankingEntry{}
	for _, r := range p.CurrentRankings {
		byID[r.EssayID] = r
	}
	assert.Equal(t, 2, byID["e1"].Rank, "resubmission must overwrite, not append")
	assert.Equal(t, "better argument", byID["e2"].Reasoning)
}

func TestSubmitRanking_RejectsUnassignedEssay(t *testing.T) {
	e, _, session := newFixture(t)
	ctx := context.Background()
	_, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	_, f = e.SubmitRanking(ctx, session, "P1", []models.RankingEntry{{EssayID: "not-assigned", Rank: 1}})
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}

func TestGetEssayContent_ScopedToAssignment(t *testing.T) {
	e, st, session := newFixture(t)
	ctx := context.Background()
	_, f := e.AddParticipant(ctx, session, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	essay, f := e.GetEssayContent(ctx, session, "P1", "e1")
	require.Nil(t, f)
	assert.Equal(t, "essay one", essay.Text)

	st.SeedEssay(session, &models.Essay{EssayID: "e3", Text: "not assigned"})
	_, f = e.GetEssayContent(ctx, session, "P1", "e3")
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}
