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
	"golang.org/x/crypto/bcrypt"
)

// UserService manages users and their stage assignments
type UserService interface {
	Create(ctx context.Context, phone, password, role string) (*entity.User, error)
	Authenticate(ctx context.Context, phone, password string) (*entity.User, error)
	Get(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	UpdateRole(ctx context.Context, id, role string) (*entity.User, error)
	Delete(ctx context.Context, id string) error
	StagesWithUsers(ctx context.Context) ([]*entity.StageUsers, error)
	SetStageUsers(ctx context.Context, s stage.Stage, userIDs []string) error
}

type userServiceImpl struct {
	sequence  *stage.Sequence
	userRepo  port.UserRepository
	txManager port.TransactionManager
	logger    *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	sequence *stage.Sequence,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) UserService {
	return &userServiceImpl{
		sequence:  sequence,
		userRepo:  userRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// Create registers a new user with a bcrypt-hashed password
func (s *userServiceImpl) Create(ctx context.Context, phone, password, role string) (*entity.User, error) {
	if role != entity.RoleAdmin && role != entity.RoleStaff {
		return nil, fmt.Errorf("unknown role %q: %w", role, entity.ErrValidation)
	}

	existing, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user with phone %s already exists: %w", phone, entity.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Phone:        phone,
		Role:         role,
		PasswordHash: string(hash),
		Stages:       []stage.Stage{},
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))
	return user, nil
}

// Authenticate verifies the phone/password pair
func (s *userServiceImpl) Authenticate(ctx context.Context, phone, password string) (*entity.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("invalid credentials: %w", entity.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", entity.ErrForbidden)
	}
	return user, nil
}

// Get retrieves a user by ID
func (s *userServiceImpl) Get(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, entity.ErrNotFound)
	}
	return user, nil
}

// List returns all users
func (s *userServiceImpl) List(ctx context.Context) ([]*entity.User, error) {
	return s.userRepo.List(ctx)
}

// UpdateRole changes a user's role
func (s *userServiceImpl) UpdateRole(ctx context.Context, id, role string) (*entity.User, error) {
	if role != entity.RoleAdmin && role != entity.RoleStaff {
		return nil, fmt.Errorf("unknown role %q: %w", role, entity.ErrValidation)
	}

	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a user
func (s *userServiceImpl) Delete(ctx context.Context, id string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", id, entity.ErrNotFound)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User deleted",
		zap.String("user_id", id),
		zap.String("role", user.Role))
	return nil
}

// StagesWithUsers lists every pipeline stage with its assigned users
func (s *userServiceImpl) StagesWithUsers(ctx context.Context) ([]*entity.StageUsers, error) {
	result := []*entity.StageUsers{}
	for _, st := range s.sequence.Stages() {
		users, err := s.userRepo.ListByStage(ctx, st)
		if err != nil {
			return nil, err
		}
		result = append(result, &entity.StageUsers{Stage: st, Users: users})
	}
	return result, nil
}

// SetStageUsers replaces a stage's assigned user set atomically
func (s *userServiceImpl) SetStageUsers(ctx context.Context, st stage.Stage, userIDs []string) error {
	if !s.sequence.Contains(st) {
		return fmt.Errorf("stage %s: %w", st, entity.ErrInvalidStage)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, userID := range userIDs {
			user, err := s.userRepo.GetByID(txCtx, userID)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s: %w", userID, entity.ErrNotFound)
			}
		}
		return s.userRepo.SetStageUsers(txCtx, st, userIDs)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Stage assignments updated",
		zap.String("stage", st.String()),
		zap.Int("users", len(userIDs)))
	return nil
}
