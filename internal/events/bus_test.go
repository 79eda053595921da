package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haasonsaas/nexus/pkg/models"
)

func TestChannelName_ScopedPerSession(t *testing.T) {
	assert.Equal(t, "nexus:session:S1", channelName("S1"))
	assert.NotEqual(t, channelName("S1"), channelName("S2"))
}

func TestBus_NilClientDoesNotPanic(t *testing.T) {
	b := NewBus(nil, nil)
	assert.NotPanics(t, func() {
		b.Publish(context.Background(), models.Event{Type: models.EventNewMessage, SessionCode: "S1"})
	})

	ch, closeFn := b.Subscribe(context.Background(), "S1")
	defer closeFn()
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed immediately when no client is configured")
}
