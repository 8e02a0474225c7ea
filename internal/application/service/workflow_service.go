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

// WorkflowService is the stage-claim workflow engine. Claim, Advance
// and Reassign each run inside a single transaction so the
// read-check-write sequence cannot interleave with a concurrent
// transition on the same order. Notifications are collected during the
// transaction and dispatched only after it commits.
type WorkflowService interface {
	// Claim gives the acting user exclusive ownership of the order at
	// its current stage
	Claim(ctx context.Context, orderID, actingUserID string) (*entity.StageClaim, error)

	// Advance completes the claim and moves the order to the next
	// pipeline stage, applying the design-skip rule when leaving WAITING
	Advance(ctx context.Context, claimID, actingUserID string) (*entity.StageClaim, error)

	// Reassign rewrites the claimant of the order's active claim
	// (administrative override)
	Reassign(ctx context.Context, orderID, newUserID string) (*entity.StageClaim, error)

	// OverrideStage sets the order's stage directly, bypassing the
	// claim workflow. Break-glass action: any active claim becomes
	// stale relative to the new stage.
	OverrideStage(ctx context.Context, orderID string, s stage.Stage) (*entity.Order, error)

	// MyClaims returns the acting user's claims per the filter
	MyClaims(ctx context.Context, userID string, filter port.ClaimFilter) ([]*entity.StageClaim, error)

	// AuditLog returns every claim newest first
	AuditLog(ctx context.Context) ([]*entity.StageClaim, error)
}

type workflowServiceImpl struct {
	sequence  *stage.Sequence
	orderRepo port.OrderRepository
	userRepo  port.UserRepository
	claimRepo port.StageClaimRepository
	txManager port.TransactionManager
	notifier  NotificationService
	logger    *zap.Logger
	now       func() time.Time
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	sequence *stage.Sequence,
	orderRepo port.OrderRepository,
	userRepo port.UserRepository,
	claimRepo port.StageClaimRepository,
	txManager port.TransactionManager,
	notifier NotificationService,
	logger *zap.Logger,
) WorkflowService {
	return &workflowServiceImpl{
		sequence:  sequence,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		claimRepo: claimRepo,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Claim creates an active claim for the acting user at the order's
// current stage
func (s *workflowServiceImpl) Claim(ctx context.Context, orderID, actingUserID string) (*entity.StageClaim, error) {
	var claim *entity.StageClaim
	var postCommit []func()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
		}

		active, err := s.claimRepo.FindActiveByOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("order %s is already actively claimed: %w", orderID, entity.ErrConflict)
		}

		user, err := s.userRepo.GetByID(txCtx, actingUserID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s: %w", actingUserID, entity.ErrNotFound)
		}
		if !user.AssignedTo(order.CurrentStage) {
			return fmt.Errorf("no permission for the %s stage: %w", order.CurrentStage, entity.ErrForbidden)
		}

		claim = &entity.StageClaim{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			UserID:    user.ID,
			Stage:     order.CurrentStage,
			ClaimedAt: s.now(),
		}
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return err
		}

		claimedStage := order.CurrentStage
		postCommit = append(postCommit, func() {
			s.notifier.NotifyOrderClaimed(ctx, orderID, actingUserID, claimedStage)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order claimed",
		zap.String("order_id", orderID),
		zap.String("user_id", actingUserID),
		zap.String("stage", claim.Stage.String()))

	runPostCommit(postCommit)
	return claim, nil
}

// Advance marks the claim completed and moves the order to the next
// stage, if one exists
func (s *workflowServiceImpl) Advance(ctx context.Context, claimID, actingUserID string) (*entity.StageClaim, error) {
	var claim *entity.StageClaim
	var postCommit []func()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		claim, err = s.claimRepo.GetByID(txCtx, claimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return fmt.Errorf("claim %s: %w", claimID, entity.ErrNotFound)
		}
		if claim.UserID != actingUserID {
			return fmt.Errorf("claim %s is not owned by the acting user: %w", claimID, entity.ErrForbidden)
		}
		if !claim.IsActive() {
			return fmt.Errorf("claim %s: %w", claimID, entity.ErrAlreadyCompleted)
		}

		order, err := s.orderRepo.GetByID(txCtx, claim.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", claim.OrderID, entity.ErrNotFound)
		}

		completedAt := s.now()
		if err := s.claimRepo.Complete(txCtx, claimID, completedAt); err != nil {
			return err
		}
		claim.CompletedAt = &completedAt

		next, ok := s.nextStage(order)
		if !ok {
			// Last stage in the sequence; completing the claim is the
			// whole effect.
			return nil
		}

		if err := s.orderRepo.UpdateStage(txCtx, order.ID, next); err != nil {
			return err
		}

		orderID, from := order.ID, order.CurrentStage
		postCommit = append(postCommit,
			func() { s.notifier.NotifyOrderAdvanced(ctx, orderID, actingUserID, from, next) },
			func() { s.notifier.NotifyOrderAvailableForStage(ctx, orderID, next) },
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order stage advanced",
		zap.String("claim_id", claimID),
		zap.String("order_id", claim.OrderID),
		zap.String("from_stage", claim.Stage.String()))

	runPostCommit(postCommit)
	return claim, nil
}

// nextStage computes the order's successor stage. The design-skip rule
// applies only when leaving WAITING: if no product needs design work,
// DESIGN is bypassed.
func (s *workflowServiceImpl) nextStage(order *entity.Order) (stage.Stage, bool) {
	var skip stage.SkipFunc
	if order.CurrentStage == stage.StageWaiting && !order.NeedsDesign() {
		skip = func(st stage.Stage) bool { return st == stage.StageDesign }
	}
	return s.sequence.NextSkipping(order.CurrentStage, skip)
}

// Reassign rewrites the claimant of the order's active claim
func (s *workflowServiceImpl) Reassign(ctx context.Context, orderID, newUserID string) (*entity.StageClaim, error) {
	var claim *entity.StageClaim

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		newUser, err := s.userRepo.GetByID(txCtx, newUserID)
		if err != nil {
			return err
		}
		if newUser == nil || newUser.Role != entity.RoleStaff {
			return fmt.Errorf("staff user %s: %w", newUserID, entity.ErrNotFound)
		}

		order, err := s.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
		}

		claim, err = s.claimRepo.FindActiveByOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		if claim == nil {
			return fmt.Errorf("order %s is not currently claimed: %w", orderID, entity.ErrConflict)
		}

		if err := s.claimRepo.UpdateClaimant(txCtx, claim.ID, newUserID); err != nil {
			return err
		}
		claim.UserID = newUserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Claim reassigned",
		zap.String("order_id", orderID),
		zap.String("claim_id", claim.ID),
		zap.String("new_user_id", newUserID))
	return claim, nil
}

// OverrideStage sets the order's stage directly without touching claims
func (s *workflowServiceImpl) OverrideStage(ctx context.Context, orderID string, st stage.Stage) (*entity.Order, error) {
	if !s.sequence.Contains(st) {
		return nil, fmt.Errorf("stage %s: %w", st, entity.ErrInvalidStage)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}

	if err := s.orderRepo.UpdateStage(ctx, orderID, st); err != nil {
		return nil, err
	}
	order.CurrentStage = st

	s.logger.Warn("Order stage overridden",
		zap.String("order_id", orderID),
		zap.String("stage", st.String()))
	return order, nil
}

// MyClaims returns the user's claims per the filter
func (s *workflowServiceImpl) MyClaims(ctx context.Context, userID string, filter port.ClaimFilter) ([]*entity.StageClaim, error) {
	return s.claimRepo.ListByUser(ctx, userID, filter)
}

// AuditLog returns every claim newest first with order and user context
func (s *workflowServiceImpl) AuditLog(ctx context.Context) ([]*entity.StageClaim, error) {
	return s.claimRepo.ListAll(ctx)
}

// runPostCommit fires the collected notification callbacks after the
// transaction has committed. Dispatch is best-effort by construction:
// each callback swallows its own failures.
func runPostCommit(callbacks []func()) {
	for _, fn := range callbacks {
		fn()
	}
}
