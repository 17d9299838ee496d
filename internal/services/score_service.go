package services

import (
	"context"

	"github.com/google/uuid"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

// AccessDecision is the visibility policy evaluated for one actor and paper.
type AccessDecision struct {
	CanView        bool `json:"can_view"`
	CanViewReviews bool `json:"can_view_reviews"`
	CanDownload    bool `json:"can_download"`
}

type ScoreService interface {
	GetAggregateScore(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (*workflow.ScoreSummary, error)
	CheckAccess(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (AccessDecision, error)
}

// DefaultScoreService answers the read-only queries over a paper's reviews.
// Aggregates are recomputed on every call.
type DefaultScoreService struct {
	store StoreReader
}

func NewScoreService(store StoreReader) *DefaultScoreService {
	return &DefaultScoreService{store: store}
}

// paperView is a paper with its reviews and the policy input derived from them.
type paperView struct {
	paper   *models.Paper
	reviews []models.Review
	access  workflow.PaperAccess
}

func loadPaperView(ctx context.Context, store StoreReader, paperID uuid.UUID) (*paperView, error) {
	paper, err := store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	reviews, err := store.ListPaperReviews(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	reviewerIDs := make([]uuid.UUID, 0, len(reviews))
	for _, r := range reviews {
		reviewerIDs = append(reviewerIDs, r.ReviewerID)
	}
	return &paperView{
		paper:   paper,
		reviews: reviews,
		access: workflow.PaperAccess{
			Status:      paper.Status,
			AuthorIDs:   paper.AuthorIDs(),
			ReviewerIDs: reviewerIDs,
		},
	}, nil
}

func (v *paperView) decide(actor workflow.Actor) AccessDecision {
	return AccessDecision{
		CanView:        workflow.CanView(actor, v.access),
		CanViewReviews: workflow.CanViewReviews(actor, v.access),
		CanDownload:    workflow.CanDownload(actor, v.access),
	}
}

func (s *DefaultScoreService) GetAggregateScore(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (*workflow.ScoreSummary, error) {
	if err := workflow.Authorize(actor, models.RoleAuthor, models.RoleReviewer, models.RoleAdmin); err != nil {
		return nil, err
	}
	view, err := loadPaperView(ctx, s.store, paperID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanViewReviews(actor, view.access) {
		return nil, apperrors.NewForbiddenError("You may not view reviews of this paper")
	}
	summary := workflow.Aggregate(view.reviews)
	return &summary, nil
}

func (s *DefaultScoreService) CheckAccess(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (AccessDecision, error) {
	view, err := loadPaperView(ctx, s.store, paperID)
	if err != nil {
		return AccessDecision{}, err
	}
	return view.decide(actor), nil
}
