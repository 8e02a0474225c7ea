package port

import "github.com/jetprint/print-workflow/internal/domain/entity"

// Broadcaster pushes notifications to connected clients. Delivery is
// fire-and-forget: a disconnected or slow subscriber may miss events,
// and failures never affect the state transition that produced them.
type Broadcaster interface {
	Broadcast(n *entity.Notification)
}
