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

// DeadlineWarningWindow is how close a deadline must be to be flagged.
const DeadlineWarningWindow = 7 * 24 * time.Hour

// SubmissionResult is a completed review plus the paper status after it.
type SubmissionResult struct {
	Review        *models.Review     `json:"review"`
	PaperStatus   models.PaperStatus `json:"paper_status"`
	StatusChanged bool               `json:"status_changed"`
	Completed     int                `json:"completed_reviews"`
	Capacity      int                `json:"reviews_per_paper"`
}

// Assignment is one entry on a reviewer's dashboard.
type Assignment struct {
	Review              models.Review `json:"review"`
	DeadlineApproaching bool          `json:"deadline_approaching"`
	Overdue             bool          `json:"overdue"`
}

// Dashboard groups a reviewer's assignments.
type Dashboard struct {
	Pending   []Assignment `json:"pending"`
	Completed []Assignment `json:"completed"`
}

type ReviewService interface {
	SubmitReview(ctx context.Context, actor workflow.Actor, reviewID uuid.UUID, submission workflow.ReviewSubmission) (*SubmissionResult, error)
	ReviewerDashboard(ctx context.Context, actor workflow.Actor) (*Dashboard, error)
}

// DefaultReviewService completes reviews. The review row is locked before the
// paper row, and the completed count is read under the paper lock so the last
// of several concurrent completions always sees the others.
type DefaultReviewService struct {
	engine
	minCommentLength int
}

func NewReviewService(store Store, notifier Notifier, m *metrics.Metrics, log zerolog.Logger, minCommentLength int) *DefaultReviewService {
	return &DefaultReviewService{
		engine:           newEngine(store, notifier, m, log),
		minCommentLength: minCommentLength,
	}
}

func (s *DefaultReviewService) SubmitReview(ctx context.Context, actor workflow.Actor, reviewID uuid.UUID, submission workflow.ReviewSubmission) (*SubmissionResult, error) {
	start := time.Now()
	result, events, err := s.submit(ctx, actor, reviewID, submission)
	s.metrics.ObserveOperation("submit_review", time.Since(start))
	s.metrics.IncrementSubmission(resultLabel(err))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeIncompleteReview) {
			s.log.Debug().Err(err).Str("reviewID", reviewID.String()).Msg("Review submission rejected")
		}
		return nil, err
	}

	s.log.Info().
		Str("reviewID", reviewID.String()).
		Str("paperID", result.Review.PaperID.String()).
		Str("paperStatus", string(result.PaperStatus)).
		Int("completed", result.Completed).
		Int("capacity", result.Capacity).
		Msg("Review completed")
	s.publish(ctx, transitionAutomatic, events)
	return result, nil
}

func (s *DefaultReviewService) submit(ctx context.Context, actor workflow.Actor, reviewID uuid.UUID, submission workflow.ReviewSubmission) (*SubmissionResult, []Event, error) {
	if err := workflow.Authorize(actor, models.RoleReviewer, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	if err := submission.Validate(s.minCommentLength); err != nil {
		return nil, nil, err
	}

	var (
		result *SubmissionResult
		events []Event
	)
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		review, err := tx.LockReview(ctx, reviewID)
		if err != nil {
			return storeError(err, "Review not found")
		}
		if review.ReviewerID != actor.ID && actor.Role != models.RoleAdmin {
			return apperrors.NewNotAssignedError()
		}
		if review.IsCompleted {
			return apperrors.NewAlreadyCompletedError(nil)
		}

		paper, err := tx.LockPaper(ctx, review.PaperID)
		if err != nil {
			return storeError(err, "Paper not found")
		}

		completedAt := s.now()
		submission.Apply(review)
		review.IsCompleted = true
		review.CompletedAt = &completedAt
		if err := tx.CompleteReview(ctx, review); err != nil {
			if errors.Is(err, ErrAlreadyCompleted) {
				return apperrors.NewAlreadyCompletedError(err)
			}
			return storeError(err, "Review not found")
		}
		events = append(events, Event{
			Type:       EventReviewCompleted,
			PaperID:    paper.ID,
			PaperTitle: paper.Title,
			ReviewID:   review.ID,
			ReviewerID: review.ReviewerID,
			At:         completedAt,
		})

		completed, err := tx.CountCompletedReviews(ctx, paper.ID)
		if err != nil {
			return storeError(err, "Paper not found")
		}
		change, err := s.advance(ctx, tx, paper, workflow.TriggerReviewCompleted, completed, actor.ID)
		if err != nil {
			return err
		}
		if change != nil {
			events = append(events, statusChangedEvent(paper, change))
		}

		result = &SubmissionResult{
			Review:        review,
			PaperStatus:   paper.Status,
			StatusChanged: change != nil,
			Completed:     completed,
			Capacity:      paper.Conference.Capacity(),
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, events, nil
}

func (s *DefaultReviewService) ReviewerDashboard(ctx context.Context, actor workflow.Actor) (*Dashboard, error) {
	if err := workflow.Authorize(actor, models.RoleReviewer, models.RoleAdmin); err != nil {
		return nil, err
	}
	reviews, err := s.store.ListReviewerReviews(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "Reviewer not found")
	}

	now := s.now()
	dashboard := &Dashboard{Pending: []Assignment{}, Completed: []Assignment{}}
	for _, r := range reviews {
		if r.IsCompleted {
			dashboard.Completed = append(dashboard.Completed, Assignment{Review: r})
			continue
		}
		a := Assignment{Review: r}
		if r.Deadline != nil {
			a.Overdue = r.Deadline.Before(now)
			a.DeadlineApproaching = !a.Overdue && r.Deadline.Sub(now) <= DeadlineWarningWindow
		}
		dashboard.Pending = append(dashboard.Pending, a)
	}
	return dashboard, nil
}
