package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperflow_go_backend/internal/models"
)

func intPtr(v int) *int { return &v }

func completedReview(overall int, dims [4]int, rec models.Recommendation) models.Review {
	return models.Review{
		IsCompleted:      true,
		TechnicalQuality: intPtr(dims[0]),
		Novelty:          intPtr(dims[1]),
		Clarity:          intPtr(dims[2]),
		Significance:     intPtr(dims[3]),
		OverallScore:     intPtr(overall),
		Recommendation:   &rec,
	}
}

func TestAggregate_NoData(t *testing.T) {
	summary := Aggregate([]models.Review{{IsCompleted: false}})

	assert.False(t, summary.HasData())
	assert.Nil(t, summary.AverageScore)
	assert.Nil(t, summary.Dimensions.TechnicalQuality)
	assert.Nil(t, summary.Dimensions.Significance)
	assert.Len(t, summary.Recommendations, 4)
	for _, rec := range models.AllRecommendations {
		assert.Equal(t, 0, summary.Recommendations[rec])
	}
}

func TestAggregate_Means(t *testing.T) {
	reviews := []models.Review{
		completedReview(6, [4]int{4, 5, 3, 4}, models.RecommendationAccept),
		completedReview(4, [4]int{2, 3, 3, 2}, models.RecommendationMinorRevision),
		{IsCompleted: false, OverallScore: intPtr(1)},
	}

	summary := Aggregate(reviews)

	require.True(t, summary.HasData())
	assert.Equal(t, 2, summary.CompletedReviews)
	require.NotNil(t, summary.AverageScore)
	assert.InDelta(t, 5.0, *summary.AverageScore, 1e-9)
	assert.InDelta(t, 3.0, *summary.Dimensions.TechnicalQuality, 1e-9)
	assert.InDelta(t, 4.0, *summary.Dimensions.Novelty, 1e-9)
	assert.InDelta(t, 3.0, *summary.Dimensions.Clarity, 1e-9)
	assert.InDelta(t, 3.0, *summary.Dimensions.Significance, 1e-9)
	assert.Equal(t, map[models.Recommendation]int{
		models.RecommendationReject:        0,
		models.RecommendationMajorRevision: 0,
		models.RecommendationMinorRevision: 1,
		models.RecommendationAccept:        1,
	}, summary.Recommendations)
}

func TestAggregate_AverageOfZeroIsNotNoData(t *testing.T) {
	// Scores below the valid range should never be stored, but the
	// aggregator still distinguishes a computed mean from an absent one.
	summary := Aggregate([]models.Review{completedReview(0, [4]int{0, 0, 0, 0}, models.RecommendationReject)})

	require.NotNil(t, summary.AverageScore)
	assert.Equal(t, 0.0, *summary.AverageScore)
	assert.Equal(t, 1, summary.Recommendations[models.RecommendationReject])
}
