package notification

import (
	"testing"

	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	id1, ch1 := hub.Subscribe()
	id2, ch2 := hub.Subscribe()
	defer hub.Unsubscribe(id1)
	defer hub.Unsubscribe(id2)

	n := &entity.Notification{ID: "n1", UserID: "u1", Message: "hello"}
	hub.Broadcast(n)

	assert.Equal(t, n, <-ch1)
	assert.Equal(t, n, <-ch2)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())

	id, ch := hub.Subscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	hub.Unsubscribe(id)
	assert.Equal(t, 0, hub.SubscriberCount())

	// Channel is closed after unsubscribe
	_, open := <-ch
	assert.False(t, open)

	// Broadcasting with no subscribers is a no-op
	hub.Broadcast(&entity.Notification{ID: "n1"})

	// Unsubscribing twice is safe
	hub.Unsubscribe(id)
}

func TestHub_DropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub(zap.NewNop())

	id, ch := hub.Subscribe()
	defer hub.Unsubscribe(id)

	// Fill the buffer past capacity; Broadcast must never block
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast(&entity.Notification{ID: "n"})
	}

	assert.Len(t, ch, subscriberBuffer)
}
