package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
)

func TestSetUserActive(t *testing.T) {
	f := newFixture(t, 3)
	svc := NewUserService(f.store, zerolog.Nop())
	admin := actorOf(f.admin)

	user, err := svc.SetUserActive(f.ctx, admin, f.reviewer1.ID, false)
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	// A deactivated reviewer can no longer be assigned.
	_, err = f.assignments.AssignReviewer(f.ctx, admin, f.paper.ID, f.reviewer1.ID, nil)
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))

	user, err = svc.SetUserActive(f.ctx, admin, f.reviewer1.ID, true)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	_, err = svc.SetUserActive(f.ctx, admin, f.admin.ID, false)
	assert.Equal(t, apperrors.ErrorTypeBadRequest, apperrors.TypeOf(err))

	_, err = svc.SetUserActive(f.ctx, admin, uuid.New(), false)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))

	_, err = svc.SetUserActive(f.ctx, actorOf(f.author), f.reviewer1.ID, false)
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))

	got, err := svc.GetUser(f.ctx, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, f.author.Email, got.Email)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t, 3)
	svc := NewUserService(f.store, zerolog.Nop())
	admin := actorOf(f.admin)
	f.seedUser(t, "retired@example.org", models.RoleReviewer, false)

	all, err := svc.ListUsers(f.ctx, admin, UserQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	reviewers, err := svc.ListUsers(f.ctx, admin, UserQuery{Role: models.RoleReviewer})
	require.NoError(t, err)
	assert.Len(t, reviewers, 4)
	for _, u := range reviewers {
		assert.Equal(t, models.RoleReviewer, u.Role)
	}

	active := true
	reviewers, err = svc.ListUsers(f.ctx, admin, UserQuery{Role: models.RoleReviewer, Active: &active})
	require.NoError(t, err)
	assert.Len(t, reviewers, 3)

	found, err := svc.ListUsers(f.ctx, admin, UserQuery{Search: "R2@EXAMPLE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, f.reviewer2.ID, found[0].ID)

	_, err = svc.ListUsers(f.ctx, admin, UserQuery{Role: "EDITOR"})
	assert.Equal(t, apperrors.ErrorTypeBadRequest, apperrors.TypeOf(err))

	_, err = svc.ListUsers(f.ctx, actorOf(f.reviewer1), UserQuery{})
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t, 3)
	svc := NewUserService(f.store, zerolog.Nop())
	admin := actorOf(f.admin)

	name := "  Promoted Author "
	role := models.RoleReviewer
	user, err := svc.UpdateUser(f.ctx, admin, f.author.ID, UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Promoted Author", user.Name)
	assert.Equal(t, models.RoleReviewer, user.Role)
	assert.Equal(t, f.author.Email, user.Email)

	stored, err := f.store.GetUser(f.ctx, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReviewer, stored.Role)

	demoted := models.RoleAuthor
	_, err = svc.UpdateUser(f.ctx, admin, f.admin.ID, UserUpdate{Role: &demoted})
	assert.Equal(t, apperrors.ErrorTypeBadRequest, apperrors.TypeOf(err))

	// Renaming oneself is allowed.
	self := "Chair"
	user, err = svc.UpdateUser(f.ctx, admin, f.admin.ID, UserUpdate{Name: &self})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	blank := " "
	_, err = svc.UpdateUser(f.ctx, admin, f.reviewer1.ID, UserUpdate{Name: &blank})
	assert.Equal(t, apperrors.ErrorTypeBadRequest, apperrors.TypeOf(err))

	unknown := models.UserRole("EDITOR")
	_, err = svc.UpdateUser(f.ctx, admin, f.reviewer1.ID, UserUpdate{Role: &unknown})
	assert.Equal(t, apperrors.ErrorTypeBadRequest, apperrors.TypeOf(err))

	_, err = svc.UpdateUser(f.ctx, admin, uuid.New(), UserUpdate{Name: &self})
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))

	_, err = svc.UpdateUser(f.ctx, actorOf(f.reviewer1), f.author.ID, UserUpdate{Name: &self})
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
}
