package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/metrics"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

type AssignmentService interface {
	AssignReviewer(ctx context.Context, actor workflow.Actor, paperID, reviewerID uuid.UUID, deadline *time.Time) (*models.Review, error)
	// AvailableReviewers lists the users AssignReviewer would accept for the paper.
	AvailableReviewers(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) ([]models.User, error)
}

// DefaultAssignmentService binds reviewers to papers. The store's unique
// (paper, reviewer) constraint is the arbiter for concurrent assignments.
type DefaultAssignmentService struct {
	engine
}

func NewAssignmentService(store Store, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *DefaultAssignmentService {
	return &DefaultAssignmentService{engine: newEngine(store, notifier, m, log)}
}

func (s *DefaultAssignmentService) AssignReviewer(ctx context.Context, actor workflow.Actor, paperID, reviewerID uuid.UUID, deadline *time.Time) (*models.Review, error) {
	start := time.Now()
	review, events, err := s.assign(ctx, actor, paperID, reviewerID, deadline)
	s.metrics.ObserveOperation("assign_reviewer", time.Since(start))
	s.metrics.IncrementAssignment(resultLabel(err))
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("paperID", paperID.String()).
		Str("reviewerID", reviewerID.String()).
		Str("reviewID", review.ID.String()).
		Msg("Reviewer assigned")
	s.publish(ctx, transitionAutomatic, events)
	return review, nil
}

func (s *DefaultAssignmentService) assign(ctx context.Context, actor workflow.Actor, paperID, reviewerID uuid.UUID, deadline *time.Time) (*models.Review, []Event, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}

	var (
		review *models.Review
		events []Event
	)
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		paper, err := tx.LockPaper(ctx, paperID)
		if err != nil {
			return storeError(err, "Paper not found")
		}
		reviewer, err := tx.GetUser(ctx, reviewerID)
		if err != nil {
			return storeError(err, "Reviewer not found")
		}
		if err := checkAssignee(reviewer, paper); err != nil {
			return err
		}

		r := &models.Review{
			PaperID:    paper.ID,
			ReviewerID: reviewer.ID,
			AssignedAt: s.now(),
			Deadline:   deadline,
		}
		if err := tx.CreateReview(ctx, r); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return apperrors.NewDuplicateAssignmentError(err)
			}
			return storeError(err, "Paper not found")
		}
		events = append(events, Event{
			Type:       EventReviewAssigned,
			PaperID:    paper.ID,
			PaperTitle: paper.Title,
			ReviewID:   r.ID,
			ReviewerID: reviewer.ID,
			At:         r.AssignedAt,
			Recipients: []string{reviewer.Email},
		})

		change, err := s.advance(ctx, tx, paper, workflow.TriggerReviewAssigned, 0, actor.ID)
		if err != nil {
			return err
		}
		if change != nil {
			events = append(events, statusChangedEvent(paper, change))
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return review, events, nil
}

func (s *DefaultAssignmentService) AvailableReviewers(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) ([]models.User, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	paper, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	reviews, err := s.store.ListPaperReviews(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}

	exclude := make([]uuid.UUID, 0, len(paper.Authors)+len(reviews))
	for _, a := range paper.Authors {
		exclude = append(exclude, a.ID)
	}
	for _, r := range reviews {
		exclude = append(exclude, r.ReviewerID)
	}
	active := true
	users, err := s.store.ListUsers(ctx, UserFilter{
		Roles:   []models.UserRole{models.RoleReviewer, models.RoleAdmin},
		Active:  &active,
		Exclude: exclude,
	})
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	return users, nil
}

func checkAssignee(reviewer *models.User, paper *models.Paper) error {
	if !reviewer.IsActive {
		return apperrors.NewForbiddenError("Reviewer account is deactivated")
	}
	if reviewer.Role != models.RoleReviewer && reviewer.Role != models.RoleAdmin {
		return apperrors.NewForbiddenError("User is not a reviewer")
	}
	if paper.HasAuthor(reviewer.ID) {
		return apperrors.NewForbiddenError("Authors cannot review their own paper")
	}
	return nil
}
