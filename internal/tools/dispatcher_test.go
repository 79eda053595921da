package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/engine/daytrader"
	"github.com/haasonsaas/nexus/internal/engine/shapefactory"
	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func newShapeFactoryFixture(t *testing.T, commLevel models.CommunicationLevel) (*Dispatcher, *memory.Store, models.SessionCode) {
	t.Helper()
	st := memory.New()
	shapeEngine := shapefactory.New(st)
	tradeEngine := daytrader.New(st)
	factory := engine.NewFactory(shapeEngine, tradeEngine)

	sess, f := shapeEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{
		CommunicationLevel: commLevel,
		StartingMoney:      1000,
		MinTradePrice:      1,
		MaxTradePrice:      100,
		MaxProductionNum:   10,
		ProductionTime:     1,
	})
	require.Nil(t, f)

	_, f = shapeEngine.AddParticipant(context.Background(), sess.SessionCode, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)
	_, f = shapeEngine.AddParticipant(context.Background(), sess.SessionCode, "P2", models.ParticipantAIAgent)
	require.Nil(t, f)

	return NewDispatcher(st, factory), st, sess.SessionCode
}

func TestDispatcher_GetGameState(t *testing.T) {
	d, _, session := newShapeFactoryFixture(t, models.CommChat)
	result, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P1"}, "get_game_state", nil)
	require.Nil(t, f)
	assert.NotNil(t, result)
}

func TestDispatcher_SendMessage_NoChatIsRejected(t *testing.T) {
	d, _, session := newShapeFactoryFixture(t, models.CommNoChat)
	_, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P1"}, "send_message",
		json.RawMessage(`{"recipient":"P2","content":"hi"}`))
	require.NotNil(t, f)
	assert.Equal(t, models.ErrCommunicationLevelViolation, f.Kind)
}

func TestDispatcher_SendMessage_BroadcastForcesRecipient(t *testing.T) {
	d, st, session := newShapeFactoryFixture(t, models.CommBroadcast)
	_, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P1"}, "send_message",
		json.RawMessage(`{"recipient":"P2","content":"hi all"}`))
	require.Nil(t, f)

	msgs, f := st.ListMessages(context.Background(), session, "P2")
	require.Nil(t, f)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsBroadcast())
}

func TestDispatcher_RespondToTradeOffer_RejectsPlaceholderID(t *testing.T) {
	d, _, session := newShapeFactoryFixture(t, models.CommChat)
	_, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P2"}, "respond_to_trade_offer",
		json.RawMessage(`{"transaction_id":"transaction_id","response":"accept"}`))
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}

func TestDispatcher_ProduceShape_RoutesToShapeFactory(t *testing.T) {
	d, _, session := newShapeFactoryFixture(t, models.CommChat)
	result, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P1"}, "produce_shape",
		json.RawMessage(`{"shape":"circle","quantity":1}`))
	require.Nil(t, f)
	payload, ok := result.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, payload["production_id"])
}

func TestDispatcher_WrongKindToolIsRejected(t *testing.T) {
	d, _, session := newShapeFactoryFixture(t, models.CommChat)
	_, f := d.Execute(context.Background(), Caller{Session: session, Participant: "P1"}, "make_investment",
		json.RawMessage(`{"invest_price":10}`))
	require.NotNil(t, f)
	assert.Equal(t, models.ErrInvalidState, f.Kind)
}
