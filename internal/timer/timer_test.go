package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/nexus/internal/store/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestTimer_CountsDownAndCompletesSession(t *testing.T) {
	st := memory.New()
	sess := &models.Session{SessionCode: "S1", ExperimentType: models.ExperimentShapeFactory, Status: models.SessionActive}
	require.NoError(t, st.CreateSession(context.Background(), sess))
	require.Nil(t, st.PutTimerState(context.Background(), &models.TimerState{SessionCode: "S1", TimeRemainingSecs: 2}))

	tm := New(st, nil, WithTickInterval(5*time.Millisecond))
	require.Nil(t, tm.Start(context.Background(), "S1"))

	require.Eventually(t, func() bool {
		s, f := st.GetSession(context.Background(), "S1")
		return f == nil && s.Status == models.SessionCompleted
	}, time.Second, 5*time.Millisecond)

	state, f := st.GetTimerState(context.Background(), "S1")
	require.Nil(t, f)
	assert.Equal(t, 0, state.TimeRemainingSecs)
	assert.False(t, state.Active)

	tm.StopAll()
}

func TestTimer_StartTwiceIsNoop(t *testing.T) {
	st := memory.New()
	sess := &models.Session{SessionCode: "S1", ExperimentType: models.ExperimentShapeFactory, Status: models.SessionActive}
	require.NoError(t, st.CreateSession(context.Background(), sess))
	require.Nil(t, st.PutTimerState(context.Background(), &models.TimerState{SessionCode: "S1", TimeRemainingSecs: 100}))

	tm := New(st, nil, WithTickInterval(5*time.Millisecond))
	require.Nil(t, tm.Start(context.Background(), "S1"))
	require.Nil(t, tm.Start(context.Background(), "S1"))

	tm.StopAll()
}
