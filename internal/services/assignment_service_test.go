package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
)

func TestAssignReviewer(t *testing.T) {
	t.Run("first assignment moves paper under review", func(t *testing.T) {
		f := newFixture(t, 3)
		deadline := time.Now().Add(14 * 24 * time.Hour)

		review, err := f.assignments.AssignReviewer(f.ctx, actorOf(f.admin), f.paper.ID, f.reviewer1.ID, &deadline)

		require.NoError(t, err)
		assert.Equal(t, f.paper.ID, review.PaperID)
		assert.Equal(t, f.reviewer1.ID, review.ReviewerID)
		assert.False(t, review.IsCompleted)
		assert.Nil(t, review.CompletedAt)
		assert.Nil(t, review.OverallScore)
		assert.Equal(t, &deadline, review.Deadline)
		assert.False(t, review.AssignedAt.IsZero())
		assert.Equal(t, models.PaperStatusUnderReview, f.paperStatus(t, f.paper.ID))

		history, err := f.store.ListStatusHistory(f.ctx, f.paper.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.PaperStatusSubmitted, history[0].OldStatus)
		assert.Equal(t, models.PaperStatusUnderReview, history[0].NewStatus)

		assert.Equal(t, []EventType{EventReviewAssigned, EventPaperStatusChanged}, f.notifier.types())
		assert.Equal(t, []string{f.reviewer1.Email}, f.notifier.events[0].Recipients)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Assignments.WithLabelValues("ok")))
	})

	t.Run("second assignment keeps status", func(t *testing.T) {
		f := newFixture(t, 3)
		f.assign(t, f.paper.ID, f.reviewer1)
		f.assign(t, f.paper.ID, f.reviewer2)

		assert.Equal(t, models.PaperStatusUnderReview, f.paperStatus(t, f.paper.ID))
		history, _ := f.store.ListStatusHistory(f.ctx, f.paper.ID)
		assert.Len(t, history, 1)
	})

	t.Run("duplicate assignment", func(t *testing.T) {
		f := newFixture(t, 3)
		f.assign(t, f.paper.ID, f.reviewer1)

		_, err := f.assignments.AssignReviewer(f.ctx, actorOf(f.admin), f.paper.ID, f.reviewer1.ID, nil)

		assert.Equal(t, apperrors.ErrorTypeDuplicateAssignment, apperrors.TypeOf(err))
		assert.True(t, errors.Is(err, ErrDuplicate))
		reviews, _ := f.store.ListPaperReviews(f.ctx, f.paper.ID)
		assert.Len(t, reviews, 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Assignments.WithLabelValues("DUPLICATE_ASSIGNMENT")))
	})

	t.Run("admin may be assigned", func(t *testing.T) {
		f := newFixture(t, 3)
		other := f.seedUser(t, "admin2@example.org", models.RoleAdmin, true)
		_, err := f.assignments.AssignReviewer(f.ctx, actorOf(f.admin), f.paper.ID, other.ID, nil)
		assert.NoError(t, err)
	})

	failures := []struct {
		name     string
		setup    func(t *testing.T, f *fixture) (actorUser models.User, paperID, reviewerID uuid.UUID)
		wantType apperrors.ErrorType
	}{
		{
			name: "caller is not admin",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				return f.reviewer2, f.paper.ID, f.reviewer1.ID
			},
			wantType: apperrors.ErrorTypeForbidden,
		},
		{
			name: "caller is deactivated",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				inactive := f.seedUser(t, "old-admin@example.org", models.RoleAdmin, false)
				return inactive, f.paper.ID, f.reviewer1.ID
			},
			wantType: apperrors.ErrorTypeForbidden,
		},
		{
			name: "paper does not exist",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				return f.admin, uuid.New(), f.reviewer1.ID
			},
			wantType: apperrors.ErrorTypeNotFound,
		},
		{
			name: "reviewer does not exist",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				return f.admin, f.paper.ID, uuid.New()
			},
			wantType: apperrors.ErrorTypeNotFound,
		},
		{
			name: "reviewer is deactivated",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				gone := f.seedUser(t, "gone@example.org", models.RoleReviewer, false)
				return f.admin, f.paper.ID, gone.ID
			},
			wantType: apperrors.ErrorTypeForbidden,
		},
		{
			name: "assignee is an author role",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				other := f.seedUser(t, "writer@example.org", models.RoleAuthor, true)
				return f.admin, f.paper.ID, other.ID
			},
			wantType: apperrors.ErrorTypeForbidden,
		},
		{
			name: "assignee wrote the paper",
			setup: func(t *testing.T, f *fixture) (models.User, uuid.UUID, uuid.UUID) {
				p := f.seedPaper(t, "Self review attempt", f.author, f.reviewer3)
				return f.admin, p.ID, f.reviewer3.ID
			},
			wantType: apperrors.ErrorTypeForbidden,
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 3)
			caller, paperID, reviewerID := tt.setup(t, f)

			review, err := f.assignments.AssignReviewer(f.ctx, actorOf(caller), paperID, reviewerID, nil)

			assert.Nil(t, review)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.Equal(t, models.PaperStatusSubmitted, f.paperStatus(t, f.paper.ID))
			assert.Empty(t, f.notifier.types())
		})
	}
}

func TestAssignReviewer_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, 3)
	const attempts = 50

	var successes, duplicates int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.assignments.AssignReviewer(ctx, actorOf(f.admin), f.paper.ID, f.reviewer1.ID, nil)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case apperrors.Is(err, apperrors.ErrorTypeDuplicateAssignment):
				atomic.AddInt32(&duplicates, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, successes)
	assert.EqualValues(t, attempts-1, duplicates)
	reviews, err := f.store.ListPaperReviews(f.ctx, f.paper.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestAvailableReviewers(t *testing.T) {
	f := newFixture(t, 3)
	admin := actorOf(f.admin)
	f.seedUser(t, "inactive@example.org", models.RoleReviewer, false)
	coAuthor := f.seedUser(t, "coauthor@example.org", models.RoleReviewer, true)
	paper := f.seedPaper(t, "Co-authored by a reviewer", f.author, coAuthor)
	f.assign(t, paper.ID, f.reviewer1)

	available, err := f.assignments.AvailableReviewers(f.ctx, admin, paper.ID)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(available))
	for _, u := range available {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{f.admin.ID, f.reviewer2.ID, f.reviewer3.ID}, ids)

	// Every listed user is accepted by AssignReviewer.
	for _, u := range available {
		_, err := f.assignments.AssignReviewer(f.ctx, admin, paper.ID, u.ID, nil)
		assert.NoError(t, err, u.Email)
	}
	available, err = f.assignments.AvailableReviewers(f.ctx, admin, paper.ID)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = f.assignments.AvailableReviewers(f.ctx, admin, uuid.New())
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))

	_, err = f.assignments.AvailableReviewers(f.ctx, actorOf(f.reviewer2), paper.ID)
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
}
