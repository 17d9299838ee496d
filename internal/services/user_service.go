package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

// UserQuery is the admin user listing filter. An empty Role lists every role.
type UserQuery struct {
	Role   models.UserRole
	Search string
	Active *bool
}

// UserUpdate carries the editable profile fields. Nil fields are left alone.
type UserUpdate struct {
	Name *string          `json:"name"`
	Role *models.UserRole `json:"role"`
}

type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, actor workflow.Actor, query UserQuery) ([]models.User, error)
	UpdateUser(ctx context.Context, actor workflow.Actor, userID uuid.UUID, update UserUpdate) (*models.User, error)
	SetUserActive(ctx context.Context, actor workflow.Actor, userID uuid.UUID, active bool) (*models.User, error)
}

type DefaultUserService struct {
	store Store
	log   zerolog.Logger
}

func NewUserService(store Store, log zerolog.Logger) *DefaultUserService {
	return &DefaultUserService{store: store, log: log}
}

func (s *DefaultUserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, "User not found")
	}
	return user, nil
}

func (s *DefaultUserService) ListUsers(ctx context.Context, actor workflow.Actor, query UserQuery) ([]models.User, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	filter := UserFilter{Query: strings.TrimSpace(query.Search), Active: query.Active}
	if query.Role != "" {
		if !query.Role.Valid() {
			return nil, apperrors.New400Error("Unknown role " + string(query.Role))
		}
		filter.Roles = []models.UserRole{query.Role}
	}
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, storeError(err, "User not found")
	}
	return users, nil
}

// UpdateUser edits a user's name and role. An admin may not change their own
// role.
func (s *DefaultUserService) UpdateUser(ctx context.Context, actor workflow.Actor, userID uuid.UUID, update UserUpdate) (*models.User, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apperrors.New400Error("Name must not be empty")
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, apperrors.New400Error("Unknown role " + string(*update.Role))
	}

	var user *models.User
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if update.Role != nil && *update.Role != u.Role && actor.ID == userID {
			return apperrors.New400Error("You cannot change your own role")
		}
		if update.Name != nil {
			u.Name = strings.TrimSpace(*update.Name)
		}
		if update.Role != nil {
			u.Role = *update.Role
		}
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "User not found")
	}

	s.log.Info().Str("userID", userID.String()).Str("role", string(user.Role)).Str("adminID", actor.ID.String()).Msg("User updated")
	return user, nil
}

// SetUserActive activates or deactivates an account. Admins cannot change
// their own account, so the last admin cannot lock everyone out.
func (s *DefaultUserService) SetUserActive(ctx context.Context, actor workflow.Actor, userID uuid.UUID, active bool) (*models.User, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.ID == userID {
		return nil, apperrors.New400Error("You cannot change the status of your own account")
	}

	var user *models.User
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		if err := tx.SetUserActive(ctx, userID, active); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, storeError(err, "User not found")
	}

	s.log.Info().Str("userID", userID.String()).Bool("active", active).Str("adminID", actor.ID.String()).Msg("User activation changed")
	return user, nil
}
