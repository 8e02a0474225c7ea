package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"go.uber.org/zap"
)

// StageClaimRepository implements port.StageClaimRepository
type StageClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStageClaimRepository creates a new stage claim repository
func NewStageClaimRepository(db *sql.DB, logger *zap.Logger) port.StageClaimRepository {
	return &StageClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new open claim. Exclusivity is not re-checked here;
// the caller must have verified it inside the serializing transaction.
// The partial unique index on (order_id) WHERE completed_at IS NULL is
// the last line of defense against a second active claim.
func (r *StageClaimRepository) Create(ctx context.Context, claim *entity.StageClaim) error {
	query := `
		INSERT INTO stage_claims (id, order_id, user_id, stage, claimed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.OrderID,
		claim.UserID,
		claim.Stage.String(),
		claim.ClaimedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create stage claim",
			zap.String("order_id", claim.OrderID),
			zap.String("user_id", claim.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create stage claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by its ID, or nil when absent
func (r *StageClaimRepository) GetByID(ctx context.Context, id string) (*entity.StageClaim, error) {
	query := `
		SELECT id, order_id, user_id, stage, claimed_at, completed_at
		FROM stage_claims
		WHERE id = ?
	`

	claim, err := r.scanClaim(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get stage claim by ID",
			zap.String("claim_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get stage claim: %w", err)
	}
	return claim, nil
}

// FindActiveByOrder returns the order's single active claim, or nil.
// The active-claim invariant guarantees at most one row.
func (r *StageClaimRepository) FindActiveByOrder(ctx context.Context, orderID string) (*entity.StageClaim, error) {
	query := `
		SELECT id, order_id, user_id, stage, claimed_at, completed_at
		FROM stage_claims
		WHERE order_id = ? AND completed_at IS NULL
	`

	claim, err := r.scanClaim(executorFor(ctx, r.db).QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find active claim",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find active claim: %w", err)
	}
	return claim, nil
}

// Complete sets the completion timestamp exactly once
func (r *StageClaimRepository) Complete(ctx context.Context, claimID string, at time.Time) error {
	query := `UPDATE stage_claims SET completed_at = ? WHERE id = ? AND completed_at IS NULL`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, at, claimID)
	if err != nil {
		r.logger.Error("Failed to complete stage claim",
			zap.String("claim_id", claimID),
			zap.Error(err))
		return fmt.Errorf("failed to complete stage claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim %s: %w", claimID, entity.ErrAlreadyCompleted)
	}
	return nil
}

// UpdateClaimant rewrites the claimant of an active claim, leaving
// stage and claimed_at untouched
func (r *StageClaimRepository) UpdateClaimant(ctx context.Context, claimID, newUserID string) error {
	query := `UPDATE stage_claims SET user_id = ? WHERE id = ? AND completed_at IS NULL`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, newUserID, claimID)
	if err != nil {
		r.logger.Error("Failed to reassign stage claim",
			zap.String("claim_id", claimID),
			zap.String("new_user_id", newUserID),
			zap.Error(err))
		return fmt.Errorf("failed to reassign stage claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim %s: %w", claimID, entity.ErrAlreadyCompleted)
	}
	return nil
}

// ListByUser returns the user's claims per the filter
func (r *StageClaimRepository) ListByUser(ctx context.Context, userID string, filter port.ClaimFilter) ([]*entity.StageClaim, error) {
	base := `
		SELECT id, order_id, user_id, stage, claimed_at, completed_at
		FROM stage_claims
		WHERE user_id = ?
	`

	var query string
	switch filter {
	case port.ClaimFilterActive:
		query = base + ` AND completed_at IS NULL ORDER BY claimed_at ASC`
	case port.ClaimFilterCompleted:
		query = base + ` AND completed_at IS NOT NULL ORDER BY completed_at DESC`
	default:
		query = base + ` ORDER BY claimed_at DESC`
	}

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list claims by user",
			zap.String("user_id", userID),
			zap.String("filter", string(filter)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	return r.scanClaims(rows)
}

// ListAll returns every claim newest first with order and user context
func (r *StageClaimRepository) ListAll(ctx context.Context) ([]*entity.StageClaim, error) {
	query := `
		SELECT c.id, c.order_id, c.user_id, c.stage, c.claimed_at, c.completed_at,
			u.phone, o.customer_phone
		FROM stage_claims c
		JOIN users u ON u.id = c.user_id
		JOIN orders o ON o.id = c.order_id
		ORDER BY c.claimed_at DESC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list all claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list all claims: %w", err)
	}
	defer rows.Close()

	claims := []*entity.StageClaim{}
	for rows.Next() {
		var claim entity.StageClaim
		var stageName string
		var completedAt sql.NullTime

		err := rows.Scan(
			&claim.ID,
			&claim.OrderID,
			&claim.UserID,
			&stageName,
			&claim.ClaimedAt,
			&completedAt,
			&claim.UserPhone,
			&claim.CustomerPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}

		claim.Stage = stage.Stage(stageName)
		if completedAt.Valid {
			claim.CompletedAt = &completedAt.Time
		}
		claims = append(claims, &claim)
	}
	return claims, rows.Err()
}

func (r *StageClaimRepository) scanClaim(row scanner) (*entity.StageClaim, error) {
	var claim entity.StageClaim
	var stageName string
	var completedAt sql.NullTime

	err := row.Scan(
		&claim.ID,
		&claim.OrderID,
		&claim.UserID,
		&stageName,
		&claim.ClaimedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.Stage = stage.Stage(stageName)
	if completedAt.Valid {
		claim.CompletedAt = &completedAt.Time
	}
	return &claim, nil
}

func (r *StageClaimRepository) scanClaims(rows *sql.Rows) ([]*entity.StageClaim, error) {
	claims := []*entity.StageClaim{}
	for rows.Next() {
		claim, err := r.scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}
