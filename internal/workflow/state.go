// Package workflow holds the review lifecycle rules that do not depend on
// storage or transport: the paper status state machine, score aggregation,
// the visibility policy and the authorization gate.
package workflow

import "paperflow_go_backend/internal/models"

// Trigger is an event that may advance a paper's status.
type Trigger int

const (
	// TriggerReviewAssigned fires after a review row is created for the paper.
	TriggerReviewAssigned Trigger = iota
	// TriggerReviewCompleted fires after a review of the paper is completed.
	TriggerReviewCompleted
)

func (t Trigger) String() string {
	switch t {
	case TriggerReviewAssigned:
		return "review_assigned"
	case TriggerReviewCompleted:
		return "review_completed"
	}
	return "unknown"
}

// Progress is the review progress observed inside the transaction that fired
// the trigger.
type Progress struct {
	CompletedReviews int
	Capacity         int
}

// NextStatus is the single authority for automatic paper status transitions.
// It returns the status the paper should move to and whether that differs
// from current. Decision states set by an administrator are never changed.
func NextStatus(current models.PaperStatus, trigger Trigger, progress Progress) (models.PaperStatus, bool) {
	if current.IsDecision() || current == models.PaperStatusReviewed {
		return current, false
	}

	capacity := progress.Capacity
	if capacity < 1 {
		capacity = models.DefaultReviewsPerPaper
	}

	switch trigger {
	case TriggerReviewAssigned:
		if current == models.PaperStatusSubmitted {
			return models.PaperStatusUnderReview, true
		}
	case TriggerReviewCompleted:
		if progress.CompletedReviews >= capacity {
			return models.PaperStatusReviewed, true
		}
		if current == models.PaperStatusSubmitted {
			return models.PaperStatusUnderReview, true
		}
	}
	return current, false
}
