package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
)

func validSubmission() ReviewSubmission {
	return ReviewSubmission{
		Scores:         Scores{TechnicalQuality: 4, Novelty: 3, Clarity: 5, Significance: 2, Overall: 6},
		Recommendation: models.RecommendationMinorRevision,
		Comments:       strings.Repeat("solid work ", 6),
	}
}

func TestReviewSubmissionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ReviewSubmission)
	}{
		{"technical quality below range", func(s *ReviewSubmission) { s.Scores.TechnicalQuality = 0 }},
		{"novelty above range", func(s *ReviewSubmission) { s.Scores.Novelty = 6 }},
		{"clarity missing", func(s *ReviewSubmission) { s.Scores.Clarity = 0 }},
		{"significance above range", func(s *ReviewSubmission) { s.Scores.Significance = 9 }},
		{"overall above range", func(s *ReviewSubmission) { s.Scores.Overall = 8 }},
		{"overall below range", func(s *ReviewSubmission) { s.Scores.Overall = 0 }},
		{"unknown recommendation", func(s *ReviewSubmission) { s.Recommendation = "STRONG_ACCEPT" }},
		{"empty comments", func(s *ReviewSubmission) { s.Comments = "" }},
		{"blank comments", func(s *ReviewSubmission) { s.Comments = "   \n\t" }},
		{"short comments", func(s *ReviewSubmission) { s.Comments = "too short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSubmission()
			tt.mutate(&s)
			err := s.Validate(DefaultMinCommentLength)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeIncompleteReview, apperrors.TypeOf(err))
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validSubmission().Validate(DefaultMinCommentLength))
	})

	t.Run("zero minimum still rejects blank comments", func(t *testing.T) {
		s := validSubmission()
		s.Comments = " "
		assert.Error(t, s.Validate(0))
		s.Comments = "ok"
		assert.NoError(t, s.Validate(0))
	})
}

func TestReviewSubmissionApply(t *testing.T) {
	s := validSubmission()
	s.ConfidentialComments = "  borderline  "
	review := &models.Review{}

	s.Apply(review)

	require.NotNil(t, review.OverallScore)
	assert.Equal(t, 6, *review.OverallScore)
	assert.Equal(t, 4, *review.TechnicalQuality)
	assert.Equal(t, models.RecommendationMinorRevision, *review.Recommendation)
	assert.Equal(t, "borderline", review.ConfidentialComments)
	assert.Equal(t, strings.TrimSpace(s.Comments), review.Comments)
	assert.False(t, review.IsCompleted)
}
