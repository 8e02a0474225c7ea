package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"go.uber.org/zap"
)

// NotificationService dispatches human-readable events to users.
// Every method is best-effort: failures are logged and swallowed, so a
// broken delivery channel can never affect the state transition that
// produced the event.
type NotificationService interface {
	NotifyOrderCreated(ctx context.Context, orderID, creatorID string)
	NotifyOrderClaimed(ctx context.Context, orderID, userID string, s stage.Stage)
	NotifyOrderAdvanced(ctx context.Context, orderID, userID string, from, to stage.Stage)
	NotifyOrderAvailableForStage(ctx context.Context, orderID string, s stage.Stage)
	NotifyOrderOverdue(ctx context.Context, order *entity.Order, businessDays int)

	// History returns the user's most recent notifications
	History(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)
}

type notificationServiceImpl struct {
	userRepo         port.UserRepository
	notificationRepo port.NotificationRepository
	broadcaster      port.Broadcaster
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	userRepo port.UserRepository,
	notificationRepo port.NotificationRepository,
	broadcaster port.Broadcaster,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
		logger:           logger,
	}
}

// NotifyOrderCreated tells the creator their order was registered
func (s *notificationServiceImpl) NotifyOrderCreated(ctx context.Context, orderID, creatorID string) {
	s.send(ctx, creatorID, orderID, entity.NotificationSuccess,
		fmt.Sprintf("Order #%s has been created successfully", shortID(orderID)))
}

// NotifyOrderClaimed tells the claimant they now own the order
func (s *notificationServiceImpl) NotifyOrderClaimed(ctx context.Context, orderID, userID string, st stage.Stage) {
	s.send(ctx, userID, orderID, entity.NotificationInfo,
		fmt.Sprintf("You claimed order #%s at %s stage", shortID(orderID), st))
}

// NotifyOrderAdvanced tells the acting user the order moved forward
func (s *notificationServiceImpl) NotifyOrderAdvanced(ctx context.Context, orderID, userID string, from, to stage.Stage) {
	s.send(ctx, userID, orderID, entity.NotificationSuccess,
		fmt.Sprintf("Order #%s moved from %s to %s", shortID(orderID), from, to))
}

// NotifyOrderAvailableForStage fans out to every user assigned to the stage
func (s *notificationServiceImpl) NotifyOrderAvailableForStage(ctx context.Context, orderID string, st stage.Stage) {
	users, err := s.userRepo.ListByStage(ctx, st)
	if err != nil {
		s.logger.Warn("Failed to resolve stage users for notification",
			zap.String("order_id", orderID),
			zap.String("stage", st.String()),
			zap.Error(err))
		return
	}

	message := fmt.Sprintf("New order #%s is available for %s stage", shortID(orderID), st)
	for _, user := range users {
		s.send(ctx, user.ID, orderID, entity.NotificationInfo, message)
	}
}

// NotifyOrderOverdue warns the creator an order has stalled
func (s *notificationServiceImpl) NotifyOrderOverdue(ctx context.Context, order *entity.Order, businessDays int) {
	s.send(ctx, order.CreatorID, order.ID, entity.NotificationWarning,
		fmt.Sprintf("Order #%s is overdue! Created %d business days ago and still not delivered. Current stage: %s",
			shortID(order.ID), businessDays, order.CurrentStage))
}

// History returns the user's most recent notifications, newest first
func (s *notificationServiceImpl) History(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.ListByUser(ctx, userID, limit)
}

func (s *notificationServiceImpl) send(ctx context.Context, userID, orderID, category, message string) {
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderID:   orderID,
		Message:   message,
		Category:  category,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Warn("Failed to persist notification",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.Error(err))
	}

	s.broadcaster.Broadcast(n)
}

// shortID returns the display prefix of an order identifier
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
