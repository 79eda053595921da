package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/controller"
	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/engine/hiddenprofiles"
	"github.com/haasonsaas/nexus/internal/engine/shapefactory"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/internal/tools"
	"github.com/haasonsaas/nexus/pkg/models"
)

// countingLLM counts DecideWithTools calls, always returning no tool calls,
// so tests can assert an agent actually ticked without depending on tool
// dispatch outcomes.
type countingLLM struct {
	calls int
}

func (c *countingLLM) DecideWithTools(ctx context.Context, system, user string, toolset []llm.ToolSchema, opts llm.Options) ([]models.ToolCall, *models.Failure) {
	c.calls++
	return nil, nil
}

func (c *countingLLM) DecidePlain(ctx context.Context, system, user string, opts llm.Options) (string, *models.Failure) {
	return "{\"actions\":[]}", nil
}

func newTestManager(t *testing.T) (*Manager, *countingLLM, models.SessionCode) {
	t.Helper()
	st := memory.New()
	shapeEngine := shapefactory.New(st)
	factory := engine.NewFactory(shapeEngine)
	sess, f := shapeEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{
		CommunicationLevel: models.CommChat, StartingMoney: 1000, MinTradePrice: 1, MaxTradePrice: 100,
		MaxProductionNum: 10, ProductionTime: 1,
	})
	require.Nil(t, f)
	_, f = shapeEngine.AddParticipant(context.Background(), sess.SessionCode, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	dispatcher := tools.NewDispatcher(st, factory)
	fake := &countingLLM{}
	ctrl := controller.New(st, factory, fake, dispatcher, nil)
	mgr := New(st, ctrl, WithStopTimeout(time.Second))
	return mgr, fake, sess.SessionCode
}

func TestManager_ActiveAgentTicksOnInterval(t *testing.T) {
	mgr, fake, session := newTestManager(t)
	f := mgr.Start(context.Background(), session, "P1", models.ExperimentShapeFactory, models.InitiativeActive,
		5*time.Millisecond, "you are P1", 10, llm.DefaultOptions())
	require.Nil(t, f)

	require.Eventually(t, func() bool { return fake.calls >= 2 }, time.Second, 5*time.Millisecond)
	mgr.Stop(context.Background(), session, "P1")
}

func TestManager_StartTwiceIsNoop(t *testing.T) {
	mgr, _, session := newTestManager(t)
	require.Nil(t, mgr.Start(context.Background(), session, "P1", models.ExperimentShapeFactory, models.InitiativeActive,
		time.Second, "sys", 10, llm.DefaultOptions()))
	require.Nil(t, mgr.Start(context.Background(), session, "P1", models.ExperimentShapeFactory, models.InitiativeActive,
		time.Second, "sys", 10, llm.DefaultOptions()))
	mgr.Stop(context.Background(), session, "P1")
}

func TestManager_PassiveAgentOnlyTicksOnTrigger(t *testing.T) {
	mgr, fake, session := newTestManager(t)
	require.Nil(t, mgr.Start(context.Background(), session, "P1", models.ExperimentHiddenProfiles, models.InitiativePassive,
		time.Hour, "sys", 10, llm.DefaultOptions()))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, fake.calls)

	mgr.Trigger(session, "P1")
	require.Eventually(t, func() bool { return fake.calls >= 1 }, time.Second, 5*time.Millisecond)
	mgr.Stop(context.Background(), session, "P1")
}

func TestManager_TriggerSessionWakesEveryRegisteredAgent(t *testing.T) {
	st := memory.New()
	hpEngine := hiddenprofiles.New(st)
	factory := engine.NewFactory(hpEngine)
	sess, f := hpEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{CommunicationLevel: models.CommChat})
	require.Nil(t, f)
	_, f = hpEngine.AddParticipant(context.Background(), sess.SessionCode, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)
	_, f = hpEngine.AddParticipant(context.Background(), sess.SessionCode, "P2", models.ParticipantAIAgent)
	require.Nil(t, f)

	dispatcher := tools.NewDispatcher(st, factory)
	fake := &countingLLM{}
	ctrl := controller.New(st, factory, fake, dispatcher, nil)
	mgr := New(st, ctrl, WithStopTimeout(time.Second))

	require.Nil(t, mgr.Start(context.Background(), sess.SessionCode, "P1", models.ExperimentHiddenProfiles, models.InitiativePassive, time.Hour, "sys", 10, llm.DefaultOptions()))
	require.Nil(t, mgr.Start(context.Background(), sess.SessionCode, "P2", models.ExperimentHiddenProfiles, models.InitiativePassive, time.Hour, "sys", 10, llm.DefaultOptions()))

	mgr.TriggerSession(sess.SessionCode)
	require.Eventually(t, func() bool { return fake.calls >= 2 }, time.Second, 5*time.Millisecond)

	mgr.StopSession(context.Background(), sess.SessionCode)
}

func TestManager_StopClearsParticipantInitiative(t *testing.T) {
	st := memory.New()
	hpEngine := hiddenprofiles.New(st)
	factory := engine.NewFactory(hpEngine)
	sess, f := hpEngine.CreateSession(context.Background(), "researcher-1", models.SessionConfig{CommunicationLevel: models.CommChat})
	require.Nil(t, f)
	_, f = hpEngine.AddParticipant(context.Background(), sess.SessionCode, "P1", models.ParticipantAIAgent)
	require.Nil(t, f)

	seeded, f := st.GetSession(context.Background(), sess.SessionCode)
	require.Nil(t, f)
	_, present := seeded.Config.ParticipantInitiatives["P1"]
	require.True(t, present, "AddParticipant should have recorded an initiative")

	dispatcher := tools.NewDispatcher(st, factory)
	ctrl := controller.New(st, factory, &countingLLM{}, dispatcher, nil)
	mgr := New(st, ctrl, WithStopTimeout(time.Second))
	require.Nil(t, mgr.Start(context.Background(), sess.SessionCode, "P1", models.ExperimentHiddenProfiles, models.InitiativeActive, time.Second, "sys", 10, llm.DefaultOptions()))
	mgr.Stop(context.Background(), sess.SessionCode, "P1")

	updated, f := st.GetSession(context.Background(), sess.SessionCode)
	require.Nil(t, f)
	_, stillPresent := updated.Config.ParticipantInitiatives["P1"]
	assert.False(t, stillPresent)
}
