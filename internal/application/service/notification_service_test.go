package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
)

type memNotificationRepo struct {
	rows      []*entity.Notification
	createErr error
}

func (r *memNotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.rows = append(r.rows, n)
	return nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memBroadcaster struct {
	sent []*entity.Notification
}

func (b *memBroadcaster) Broadcast(n *entity.Notification) {
	b.sent = append(b.sent, n)
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()

	setup := func() (NotificationService, *memUserRepo, *memNotificationRepo, *memBroadcaster) {
		users := newMemUserRepo()
		repo := &memNotificationRepo{}
		hub := &memBroadcaster{}
		svc := NewNotificationService(users, repo, hub, zap.NewNop())
		return svc, users, repo, hub
	}

	t.Run("persists and broadcasts", func(t *testing.T) {
		svc, _, repo, hub := setup()

		svc.NotifyOrderCreated(ctx, "aabbccdd-1234", "creator-1")

		require.Len(t, repo.rows, 1)
		n := repo.rows[0]
		assert.Equal(t, "creator-1", n.UserID)
		assert.Equal(t, "aabbccdd-1234", n.OrderID)
		assert.Equal(t, entity.NotificationSuccess, n.Category)
		assert.Contains(t, n.Message, "#aabbccdd")

		require.Len(t, hub.sent, 1)
		assert.Equal(t, n, hub.sent[0])
	})

	t.Run("available-for-stage fans out to assigned users", func(t *testing.T) {
		svc, users, repo, _ := setup()
		users.users["alice"] = &entity.User{ID: "alice", Stages: []stage.Stage{stage.StageDesign}}
		users.users["bob"] = &entity.User{ID: "bob", Stages: []stage.Stage{stage.StageDesign}}
		users.users["carol"] = &entity.User{ID: "carol", Stages: []stage.Stage{stage.StageCut}}

		svc.NotifyOrderAvailableForStage(ctx, "order-1", stage.StageDesign)

		require.Len(t, repo.rows, 2)
		recipients := []string{repo.rows[0].UserID, repo.rows[1].UserID}
		assert.ElementsMatch(t, []string{"alice", "bob"}, recipients)
	})

	t.Run("broadcast still fires when persistence fails", func(t *testing.T) {
		svc, _, repo, hub := setup()
		repo.createErr = errors.New("disk full")

		svc.NotifyOrderClaimed(ctx, "order-1", "alice", stage.StageWaiting)

		assert.Empty(t, repo.rows)
		assert.Len(t, hub.sent, 1)
	})

	t.Run("history returns only the user's rows", func(t *testing.T) {
		svc, _, _, _ := setup()

		svc.NotifyOrderCreated(ctx, "order-1", "alice")
		svc.NotifyOrderCreated(ctx, "order-2", "bob")

		history, err := svc.History(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "order-1", history[0].OrderID)
	})

	t.Run("overdue warns the creator", func(t *testing.T) {
		svc, _, repo, _ := setup()

		svc.NotifyOrderOverdue(ctx, &entity.Order{
			ID:           "order-1",
			CreatorID:    "creator-1",
			CurrentStage: stage.StagePrinting,
		}, 4)

		require.Len(t, repo.rows, 1)
		assert.Equal(t, "creator-1", repo.rows[0].UserID)
		assert.Equal(t, entity.NotificationWarning, repo.rows[0].Category)
		assert.Contains(t, repo.rows[0].Message, "4 business days")
	})
}
