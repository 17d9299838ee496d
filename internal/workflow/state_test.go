package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paperflow_go_backend/internal/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  models.PaperStatus
		trigger  Trigger
		progress Progress
		want     models.PaperStatus
		changed  bool
	}{
		{"first assignment moves submitted paper under review", models.PaperStatusSubmitted, TriggerReviewAssigned, Progress{0, 3}, models.PaperStatusUnderReview, true},
		{"further assignment keeps under review", models.PaperStatusUnderReview, TriggerReviewAssigned, Progress{0, 3}, models.PaperStatusUnderReview, false},
		{"assignment after reviewed is a no-op", models.PaperStatusReviewed, TriggerReviewAssigned, Progress{3, 3}, models.PaperStatusReviewed, false},
		{"completion below capacity keeps under review", models.PaperStatusUnderReview, TriggerReviewCompleted, Progress{1, 3}, models.PaperStatusUnderReview, false},
		{"completion below capacity repairs submitted", models.PaperStatusSubmitted, TriggerReviewCompleted, Progress{1, 3}, models.PaperStatusUnderReview, true},
		{"completion reaching capacity", models.PaperStatusUnderReview, TriggerReviewCompleted, Progress{3, 3}, models.PaperStatusReviewed, true},
		{"completion over a reduced capacity", models.PaperStatusUnderReview, TriggerReviewCompleted, Progress{3, 2}, models.PaperStatusReviewed, true},
		{"completion reaching capacity from submitted", models.PaperStatusSubmitted, TriggerReviewCompleted, Progress{1, 1}, models.PaperStatusReviewed, true},
		{"completion on reviewed paper", models.PaperStatusReviewed, TriggerReviewCompleted, Progress{4, 3}, models.PaperStatusReviewed, false},
		{"accepted is never overwritten", models.PaperStatusAccepted, TriggerReviewCompleted, Progress{3, 3}, models.PaperStatusAccepted, false},
		{"rejected is never overwritten", models.PaperStatusRejected, TriggerReviewCompleted, Progress{3, 3}, models.PaperStatusRejected, false},
		{"revision required is never overwritten", models.PaperStatusRevisionRequired, TriggerReviewCompleted, Progress{5, 3}, models.PaperStatusRevisionRequired, false},
		{"revision required ignores assignment", models.PaperStatusRevisionRequired, TriggerReviewAssigned, Progress{0, 3}, models.PaperStatusRevisionRequired, false},
		{"zero capacity falls back to default", models.PaperStatusUnderReview, TriggerReviewCompleted, Progress{2, 0}, models.PaperStatusUnderReview, false},
		{"zero capacity reaches default", models.PaperStatusUnderReview, TriggerReviewCompleted, Progress{3, 0}, models.PaperStatusReviewed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := NextStatus(tt.current, tt.trigger, tt.progress)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestNextStatus_InterleavingsReachReviewed(t *testing.T) {
	// Interleaved assignments and completions always settle on Reviewed.
	orders := [][]Trigger{
		{TriggerReviewAssigned, TriggerReviewAssigned, TriggerReviewAssigned, TriggerReviewCompleted, TriggerReviewCompleted, TriggerReviewCompleted},
		{TriggerReviewAssigned, TriggerReviewCompleted, TriggerReviewAssigned, TriggerReviewCompleted, TriggerReviewAssigned, TriggerReviewCompleted},
		{TriggerReviewAssigned, TriggerReviewAssigned, TriggerReviewCompleted, TriggerReviewAssigned, TriggerReviewCompleted, TriggerReviewCompleted},
	}
	for _, order := range orders {
		status := models.PaperStatusSubmitted
		completed := 0
		for _, trigger := range order {
			if trigger == TriggerReviewCompleted {
				completed++
			}
			status, _ = NextStatus(status, trigger, Progress{CompletedReviews: completed, Capacity: 3})
			assert.NotEqual(t, models.PaperStatusSubmitted, status)
		}
		assert.Equal(t, models.PaperStatusReviewed, status)
	}
}

func TestTriggerString(t *testing.T) {
	assert.Equal(t, "review_assigned", TriggerReviewAssigned.String())
	assert.Equal(t, "review_completed", TriggerReviewCompleted.String())
	assert.Equal(t, "unknown", Trigger(42).String())
}
