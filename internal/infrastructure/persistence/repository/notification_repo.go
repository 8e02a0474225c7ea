package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a notification record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, order_id, message, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var orderID sql.NullString
	if n.OrderID != "" {
		orderID = sql.NullString{String: n.OrderID, Valid: true}
	}

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		n.ID,
		n.UserID,
		orderID,
		n.Message,
		n.Category,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("user_id", n.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent notifications
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, order_id, message, category, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*entity.Notification{}
	for rows.Next() {
		var n entity.Notification
		var orderID sql.NullString

		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&orderID,
			&n.Message,
			&n.Category,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.OrderID = orderID.String
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}
