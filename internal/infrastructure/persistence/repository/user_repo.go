package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, phone, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user",
			zap.String("phone", user.Phone),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user with stage assignments, or nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT id, phone, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`

	user, err := r.scanUser(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID",
			zap.String("user_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadStages(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByPhone retrieves a user by phone number, or nil when absent
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	query := `
		SELECT id, phone, password_hash, role, created_at
		FROM users
		WHERE phone = ?
	`

	user, err := r.scanUser(executorFor(ctx, r.db).QueryRowContext(ctx, query, phone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by phone",
			zap.String("phone", phone),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadStages(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users with stage assignments, newest first
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `
		SELECT id, phone, password_hash, role, created_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users, err := r.scanUsers(rows)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if err := r.loadStages(ctx, user); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateRole sets a user's role
func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	query := `UPDATE users SET role = ? WHERE id = ?`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, role, id)
	if err != nil {
		r.logger.Error("Failed to update user role",
			zap.String("user_id", id),
			zap.String("role", role),
			zap.Error(err))
		return fmt.Errorf("failed to update user role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Stage assignments cascade; claim history is
// kept, so deletion fails while claims reference the user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete user",
			zap.String("user_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// ListByStage returns all users assigned to the given stage
func (r *UserRepository) ListByStage(ctx context.Context, s stage.Stage) ([]*entity.User, error) {
	query := `
		SELECT u.id, u.phone, u.password_hash, u.role, u.created_at
		FROM users u
		JOIN user_stages us ON us.user_id = u.id
		WHERE us.stage = ?
		ORDER BY u.created_at
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, s.String())
	if err != nil {
		r.logger.Error("Failed to list users by stage",
			zap.String("stage", s.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list users by stage: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// SetStageUsers replaces the set of users assigned to a stage
func (r *UserRepository) SetStageUsers(ctx context.Context, s stage.Stage, userIDs []string) error {
	ex := executorFor(ctx, r.db)

	if _, err := ex.ExecContext(ctx, `DELETE FROM user_stages WHERE stage = ?`, s.String()); err != nil {
		r.logger.Error("Failed to clear stage assignments",
			zap.String("stage", s.String()),
			zap.Error(err))
		return fmt.Errorf("failed to clear stage assignments: %w", err)
	}

	for _, userID := range userIDs {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO user_stages (user_id, stage) VALUES (?, ?)`,
			userID, s.String())
		if err != nil {
			r.logger.Error("Failed to assign user to stage",
				zap.String("user_id", userID),
				zap.String("stage", s.String()),
				zap.Error(err))
			return fmt.Errorf("failed to assign user to stage: %w", err)
		}
	}
	return nil
}

func (r *UserRepository) scanUser(row scanner) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) scanUsers(rows *sql.Rows) ([]*entity.User, error) {
	users := []*entity.User{}
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) loadStages(ctx context.Context, user *entity.User) error {
	query := `SELECT stage FROM user_stages WHERE user_id = ?`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, user.ID)
	if err != nil {
		r.logger.Error("Failed to load user stages",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return fmt.Errorf("failed to load user stages: %w", err)
	}
	defer rows.Close()

	user.Stages = []stage.Stage{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan user stage: %w", err)
		}
		user.Stages = append(user.Stages, stage.Stage(name))
	}
	return rows.Err()
}
