package controller

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/engine/daytrader"
	"github.com/haasonsaas/nexus/internal/engine/hiddenprofiles"
	"github.com/haasonsaas/nexus/internal/engine/shapefactory"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/internal/tools"
	"github.com/haasonsaas/nexus/pkg/models"
)

// fakeLLM is a scripted ChatCompletion double: one canned result per call,
// consumed in order.
type fakeLLM struct {
	toolCalls [][]models.ToolCall
	plainText []string
	callIdx   int
	plainIdx  int
}

func (f *fakeLLM) DecideWithTools(ctx context.Context, system, user string, toolset []llm.ToolSchema, opts llm.Options) ([]models.ToolCall, *models.Failure) {
	if f.callIdx >= len(f.toolCalls) {
		return nil, nil
	}
	calls := f.toolCalls[f.callIdx]
	f.callIdx++
	return calls, nil
}

func (f *fakeLLM) DecidePlain(ctx context.Context, system, user string, opts llm.Options) (string, *models.Failure) {
	if f.plainIdx >= len(f.plainText) {
		return "", nil
	}
	text := f.plainText[f.plainIdx]
	f.plainIdx++
	return text, nil
}

func newShapeFactoryFixture(t *testing.T) (*Controller, models.SessionCode) {
	t.Helper()
	st := memory.New()
	shapeEngine := shapefactory.New(st)
	tradeEngine := daytrader.New(st)
	factory := engine.NewFactory(shapeEngine, tradeEngine)

	sess, f := shapeEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{
		CommunicationLevel: models.CommChat,
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

	dispatcher := tools.NewDispatcher(st, factory)
	ctrl := New(st, factory, &fakeLLM{}, dispatcher, nil)
	return ctrl, sess.SessionCode
}

func TestController_Tick_FunctionModeDispatchesToolCalls(t *testing.T) {
	ctrl, session := newShapeFactoryFixture(t)
	ctrl.LLM = &fakeLLM{toolCalls: [][]models.ToolCall{
		{{ID: "1", Name: "produce_shape", Arguments: json.RawMessage(`{"shape":"circle","quantity":1}`)}},
	}}

	memory := &models.AgentMemory{SystemPrompt: "you are P1", MaxLength: 10}
	failures := &models.FailureHistory{}
	result, f := ctrl.Tick(context.Background(), session, "P1", memory, failures, llm.DefaultOptions(), nil)
	require.Nil(t, f)
	require.Len(t, result.ToolResults, 1)
	assert.True(t, result.ToolResults[0].Success)
	assert.Len(t, memory.ConversationHistory, 2)
}

func TestController_Tick_EmptyPlanTakesNoAction(t *testing.T) {
	ctrl, session := newShapeFactoryFixture(t)
	ctrl.LLM = &fakeLLM{toolCalls: [][]models.ToolCall{{}}}

	memory := &models.AgentMemory{SystemPrompt: "you are P1", MaxLength: 10}
	failures := &models.FailureHistory{}
	result, f := ctrl.Tick(context.Background(), session, "P1", memory, failures, llm.DefaultOptions(), nil)
	require.Nil(t, f)
	assert.Empty(t, result.ToolResults)
	assert.Equal(t, 0, result.PlanActions)
}

func TestController_Tick_JSONModeExtractsPlanAndMaps(t *testing.T) {
	ctrl, session := newShapeFactoryFixture(t)
	ctrl.LLM = &fakeLLM{plainText: []string{
		"```json\n{\"actions\":[{\"type\":\"produce_shape\",\"shape\":\"circle\",\"quantity\":1}]}\n```",
	}}

	memory := &models.AgentMemory{SystemPrompt: "you are P1", MaxLength: 10}
	failures := &models.FailureHistory{}
	opts := llm.DefaultOptions()
	opts.Mode = llm.ModeJSON
	result, f := ctrl.Tick(context.Background(), session, "P1", memory, failures, opts, nil)
	require.Nil(t, f)
	require.Len(t, result.ToolResults, 1)
	assert.True(t, result.ToolResults[0].Success)
}

func TestController_Tick_FailedCallRecordsFailureHistory(t *testing.T) {
	ctrl, session := newShapeFactoryFixture(t)
	ctrl.LLM = &fakeLLM{toolCalls: [][]models.ToolCall{
		{{ID: "1", Name: "respond_to_trade_offer", Arguments: json.RawMessage(`{"transaction_id":"transaction_id","response":"accept"}`)}},
	}}

	memory := &models.AgentMemory{SystemPrompt: "you are P1", MaxLength: 10}
	failures := &models.FailureHistory{}
	result, f := ctrl.Tick(context.Background(), session, "P1", memory, failures, llm.DefaultOptions(), nil)
	require.Nil(t, f)
	require.Len(t, result.ToolResults, 1)
	assert.False(t, result.ToolResults[0].Success)
	assert.Len(t, failures.Entries(), 1)
}

func TestController_FinalVote_NoopForNonHiddenProfiles(t *testing.T) {
	ctrl, session := newShapeFactoryFixture(t)
	memory := &models.AgentMemory{SystemPrompt: "you are P1"}
	f := ctrl.FinalVote(context.Background(), session, "P1", memory, llm.DefaultOptions(), nil)
	assert.Nil(t, f)
}

func TestController_FinalVote_HiddenProfilesSubmitsVote(t *testing.T) {
	st := memory.New()
	hpEngine := hiddenprofiles.New(st)
	factory := engine.NewFactory(hpEngine)

	sess, f := hpEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{
		CommunicationLevel: models.CommChat,
	})
	require.Nil(t, f)
	_, f = hpEngine.AddParticipant(context.Background(), sess.SessionCode, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)
	_, f = hpEngine.AddParticipant(context.Background(), sess.SessionCode, "P2", models.ParticipantAIAgent)
	require.Nil(t, f)
	st.SeedCandidateDocument(&models.CandidateDocument{
		SessionCode: sess.SessionCode, ParticipantCode: "P1", CandidateName: "Alice", Text: "Alice's record.",
	})

	dispatcher := tools.NewDispatcher(st, factory)
	fake := &fakeLLM{plainText: []string{
		"```json\n{\"actions\":[{\"type\":\"submit_vote\",\"candidate_name\":\"Alice\"}]}\n```",
	}}
	ctrl := New(st, factory, fake, dispatcher, nil)

	agentMemory := &models.AgentMemory{SystemPrompt: "you are P1"}
	f = ctrl.FinalVote(context.Background(), sess.SessionCode, "P1", agentMemory, llm.DefaultOptions(), nil)
	assert.Nil(t, f)
}
