package notification

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls further behind loses events rather than blocking the
// workflow.
const subscriberBuffer = 16

// Hub is an in-process broadcast channel for notifications. Every
// event goes to every subscriber; clients filter by user id, mirroring
// a broadcast-to-all push gateway. Delivery is fire-and-forget.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan *entity.Notification
	logger      *zap.Logger
}

// NewHub creates a new notification hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]chan *entity.Notification),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The caller must Unsubscribe when done.
func (h *Hub) Subscribe() (string, <-chan *entity.Notification) {
	id := uuid.NewString()
	ch := make(chan *entity.Notification, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	h.logger.Debug("Subscriber added", zap.String("subscriber_id", id))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
		h.logger.Debug("Subscriber removed", zap.String("subscriber_id", id))
	}
}

// Broadcast delivers the notification to every subscriber without
// blocking. A full subscriber buffer drops the event.
func (h *Hub) Broadcast(n *entity.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			h.logger.Debug("Dropped notification for slow subscriber",
				zap.String("subscriber_id", id),
				zap.String("notification_id", n.ID))
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Verify interface compliance
var _ port.Broadcaster = (*Hub)(nil)
