package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
)

const (
	MinDimensionScore = 1
	MaxDimensionScore = 5
	MinOverallScore   = 1
	MaxOverallScore   = 7

	// DefaultMinCommentLength mirrors the review form's feedback minimum.
	DefaultMinCommentLength = 50
)

// Scores are the numeric parts of a completed review.
type Scores struct {
	TechnicalQuality int `json:"technical_quality"`
	Novelty          int `json:"novelty"`
	Clarity          int `json:"clarity"`
	Significance     int `json:"significance"`
	Overall          int `json:"overall"`
}

// ReviewSubmission is everything a reviewer provides when completing a review.
type ReviewSubmission struct {
	Scores               Scores                `json:"scores"`
	Recommendation       models.Recommendation `json:"recommendation"`
	Comments             string                `json:"comments"`
	ConfidentialComments string                `json:"confidential_comments"`
}

// Validate checks a submission before anything is written. minCommentLength
// below 1 is raised to 1 so empty comments are always rejected.
func (s ReviewSubmission) Validate(minCommentLength int) error {
	dimensions := []struct {
		name  string
		value int
	}{
		{"technical_quality", s.Scores.TechnicalQuality},
		{"novelty", s.Scores.Novelty},
		{"clarity", s.Scores.Clarity},
		{"significance", s.Scores.Significance},
	}
	for _, d := range dimensions {
		if d.value < MinDimensionScore || d.value > MaxDimensionScore {
			return apperrors.NewIncompleteReviewError(fmt.Sprintf("%s must be between %d and %d", d.name, MinDimensionScore, MaxDimensionScore))
		}
	}
	if s.Scores.Overall < MinOverallScore || s.Scores.Overall > MaxOverallScore {
		return apperrors.NewIncompleteReviewError(fmt.Sprintf("overall score must be between %d and %d", MinOverallScore, MaxOverallScore))
	}
	if !s.Recommendation.Valid() {
		return apperrors.NewIncompleteReviewError(fmt.Sprintf("unknown recommendation %q", s.Recommendation))
	}

	if minCommentLength < 1 {
		minCommentLength = 1
	}
	comments := strings.TrimSpace(s.Comments)
	if comments == "" {
		return apperrors.NewIncompleteReviewError("comments are required")
	}
	if utf8.RuneCountInString(comments) < minCommentLength {
		return apperrors.NewIncompleteReviewError(fmt.Sprintf("comments must be at least %d characters", minCommentLength))
	}
	return nil
}

// Apply copies the submission onto review. The caller marks completion.
func (s ReviewSubmission) Apply(review *models.Review) {
	technical, novelty, clarity := s.Scores.TechnicalQuality, s.Scores.Novelty, s.Scores.Clarity
	significance, overall := s.Scores.Significance, s.Scores.Overall
	rec := s.Recommendation

	review.TechnicalQuality = &technical
	review.Novelty = &novelty
	review.Clarity = &clarity
	review.Significance = &significance
	review.OverallScore = &overall
	review.Recommendation = &rec
	review.Comments = strings.TrimSpace(s.Comments)
	review.ConfidentialComments = strings.TrimSpace(s.ConfidentialComments)
}
