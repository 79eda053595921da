package shapefactory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newSession(t *testing.T) (*Engine, models.SessionCode) {
	t.Helper()
	st := memory.New()
	e := New(st)
	sess, f := e.CreateSession(context.Background(), "researcher-1", models.SessionConfig{
		CommunicationLevel: models.CommChat,
		AwarenessDashboard: true,
		StartingMoney:      100,
		SpecialtyCost:      5,
		RegularCost:        10,
		MinTradePrice:      1,
		MaxTradePrice:      50,
		ShapesPerOrder:     2,
		IncentiveMoney:     20,
		MaxProductionNum:   10,
		ProductionTime:     1,
	})
	require.Nil(t, f)
	return e, sess.SessionCode
}

func TestGenerateOrders_Deterministic(t *testing.T) {
	a := GenerateOrders("circle", "S1", []string{"square", "triangle"}, 3)
	b := GenerateOrders("circle", "S1", []string{"square", "triangle"}, 3)
	assert.Equal(t, a, b, "same inputs must produce the same order sequence")

	c := GenerateOrders("circle", "S2", []string{"square", "triangle"}, 3)
	assert.NotEmpty(t, c)
}

func TestGenerateOrders_EmptyPool(t *testing.T) {
	assert.Nil(t, GenerateOrders("circle", "S1", nil, 3))
	assert.Nil(t, GenerateOrders("circle", "S1", []string{"square"}, 0))
}

func TestAddParticipant_RoundRobinSpecialty(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()

	p1, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)
	p2, f := e.AddParticipant(ctx, session, "P2", models.ParticipantAIAgent)
	require.Nil(t, f)

	assert.NotEqual(t, p1.SpecialtyShape, p2.SpecialtyShape)
	assert.Len(t, p1.Orders, 2)
	for _, o := range p1.Orders {
		assert.NotEqual(t, p1.SpecialtyShape, o, "orders must never include the participant's own specialty")
	}
}

func TestProduceShape_QueueDiscipline(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()

	p, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)

	first, f := e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 1)
	require.Nil(t, f)
	assert.Equal(t, models.ProductionInProgress, first.Status)

	second, f := e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 1)
	require.Nil(t, f)
	assert.Equal(t, models.ProductionQueued, second.Status, "a second in-flight production must queue, not auto-start")
}

func TestProduceShape_ProductionLimit(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	p, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)

	_, f = e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 10)
	require.Nil(t, f)

	_, f = e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 1)
	require.NotNil(t, f)
	assert.Equal(t, models.ErrProductionLimitReached, f.Kind)
}

func TestProcessCompletedProductions_NoAutoAdvance(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	p, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)

	_, f = e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 1)
	require.Nil(t, f)
	_, f = e.ProduceShape(ctx, session, p.ParticipantCode, p.SpecialtyShape, 1)
	require.Nil(t, f)

	promoted, f := e.ProcessCompletedProductions(ctx, session)
	require.Nil(t, f)
	assert.Empty(t, promoted, "nothing should complete before estimated_completion")

	state, f := e.GetParticipantState(ctx, session, p.ParticipantCode)
	require.Nil(t, f)
	queue := state.Extra["production_queue"].([]*models.ProductionQueueEntry)
	require.Len(t, queue, 2)
	assert.Equal(t, models.ProductionQueued, queue[1].Status, "queued entry must stay queued until explicitly started")
}

func TestCreateTradeOffer_ValidatesPriceAndSelf(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	p1, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)
	p2, f := e.AddParticipant(ctx, session, "P2", models.ParticipantHuman)
	require.Nil(t, f)

	_, f = e.CreateTradeOffer(ctx, session, p1.ParticipantCode, p2.ParticipantCode, models.OfferSell, p1.SpecialtyShape, 1, 999)
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidPrice, f.Kind)

	_, f = e.CreateTradeOffer(ctx, session, p1.ParticipantCode, p1.ParticipantCode, models.OfferSell, p1.SpecialtyShape, 1, 5)
	require.NotNil(t, f)
	assert.Equal(t, models.ErrSelfOfferForbidden, f.Kind)

	tx, f := e.CreateTradeOffer(ctx, session, p1.ParticipantCode, p2.ParticipantCode, models.OfferSell, p1.SpecialtyShape, 1, 5)
	require.Nil(t, f)
	assert.Equal(t, models.TransactionProposed, tx.Status)
}

func TestAcceptTrade_ConcurrentAcceptsYieldOneWinner(t *testing.T) {
	e, session := newSession(t)
	ctx := context.Background()
	p1, f := e.AddParticipant(ctx, session, "P1", models.ParticipantHuman)
	require.Nil(t, f)
	p2, f := e.AddParticipant(ctx, session, "P2", models.ParticipantHuman)
	require.Nil(t, f)

	_, f = e.ProduceShape(ctx, session, p1.ParticipantCode, p1.SpecialtyShape, 1)
	require.Nil(t, f)
	_, f = e.ProcessCompletedProductions(ctx, session)
	require.Nil(t, f)
	time.Sleep(2 * time.Second)
	_, f = e.ProcessCompletedProductions(ctx, session)
	require.Nil(t, f)

	tx, f := e.CreateTradeOffer(ctx, session, p1.ParticipantCode, p2.ParticipantCode, models.OfferSell, p1.SpecialtyShape, 1, 5)
	require.Nil(t, f)

	results := make(chan *models.Failure, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, f := e.RespondToTradeOffer(ctx, session, p2.ParticipantCode, tx.ShortID, "accept")
			results <- f
		}()
	}

	var successes, alreadyProcessed int
	for i := 0; i < 2; i++ {
		f := <-results
		if f == nil {
			successes++
		} else if f.Kind == models.ErrAlreadyProcessed {
			alreadyProcessed++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, alreadyProcessed)
}
