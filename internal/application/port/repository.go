package port

import (
	"context"
	"time"

	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
)

// TransactionManager provides the atomic unit-of-work boundary for
// workflow transitions. All reads and writes inside fn happen
// atomically, or none do.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository defines persistence operations for Order and its products
type OrderRepository interface {
	// Create inserts the order together with its product set
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)

	// ListAvailableForStages returns orders whose current stage is in
	// the given set and which have no active claim
	ListAvailableForStages(ctx context.Context, stages []stage.Stage) ([]*entity.Order, error)

	// ListNotDeliveredBefore returns orders created before cutoff that
	// have not reached the terminal stage
	ListNotDeliveredBefore(ctx context.Context, cutoff time.Time) ([]*entity.Order, error)

	UpdateStage(ctx context.Context, orderID string, s stage.Stage) error
	UpdateNotes(ctx context.Context, orderID, notes string) error
	UpdateShippingPrice(ctx context.Context, orderID string, price float64) error

	CreateBranch(ctx context.Context, branch *entity.Branch) error
	ListBranches(ctx context.Context) ([]*entity.Branch, error)
}

// UserRepository defines persistence operations for User and stage assignments
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error

	// ListByStage returns all users assigned to the given stage
	ListByStage(ctx context.Context, s stage.Stage) ([]*entity.User, error)

	// SetStageUsers replaces the set of users assigned to a stage
	SetStageUsers(ctx context.Context, s stage.Stage, userIDs []string) error
}

// ClaimFilter selects which claims a per-user query returns
type ClaimFilter string

const (
	ClaimFilterActive    ClaimFilter = "active"
	ClaimFilterCompleted ClaimFilter = "completed"
	ClaimFilterAll       ClaimFilter = "all"
)

// StageClaimRepository defines persistence operations for StageClaim.
// Mutating operations run inside the caller's transaction; Create does
// not re-check exclusivity, callers must hold the transaction that
// serializes concurrent claim attempts on the same order.
type StageClaimRepository interface {
	Create(ctx context.Context, claim *entity.StageClaim) error
	GetByID(ctx context.Context, id string) (*entity.StageClaim, error)

	// FindActiveByOrder returns the at most one claim with no
	// completion timestamp for the order, or nil
	FindActiveByOrder(ctx context.Context, orderID string) (*entity.StageClaim, error)

	// Complete sets the completion timestamp; fails with
	// entity.ErrAlreadyCompleted if already set
	Complete(ctx context.Context, claimID string, at time.Time) error

	// UpdateClaimant rewrites the claimant of an active claim; fails
	// with entity.ErrAlreadyCompleted if the claim is completed
	UpdateClaimant(ctx context.Context, claimID, newUserID string) error

	// ListByUser returns the user's claims, active ones ordered by
	// claim time ascending, completed ones by completion time descending
	ListByUser(ctx context.Context, userID string, filter ClaimFilter) ([]*entity.StageClaim, error)

	// ListAll returns every claim newest first with order and user
	// context, serving as the audit trail
	ListAll(ctx context.Context) ([]*entity.StageClaim, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)
}
