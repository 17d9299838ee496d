package workflow

import (
	"github.com/google/uuid"

	"paperflow_go_backend/internal/models"
)

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID     uuid.UUID
	Role   models.UserRole
	Active bool
}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Active: u.IsActive}
}

// PaperAccess is the slice of a paper the visibility policy needs.
type PaperAccess struct {
	Status      models.PaperStatus
	AuthorIDs   []uuid.UUID
	ReviewerIDs []uuid.UUID
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// CanView reports whether actor may see the paper at all.
func CanView(actor Actor, paper PaperAccess) bool {
	if !actor.Active {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleAuthor, models.RoleReviewer:
		return contains(paper.AuthorIDs, actor.ID) || contains(paper.ReviewerIDs, actor.ID)
	}
	return false
}

// CanViewReviews reports whether actor may read every review of the paper.
// Reviewers only ever see their own review.
func CanViewReviews(actor Actor, paper PaperAccess) bool {
	if !actor.Active {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleAuthor, models.RoleReviewer:
		return contains(paper.AuthorIDs, actor.ID)
	}
	return false
}

// CanDownload reports whether actor may download the paper's file. Accepted
// papers are public to every active actor.
func CanDownload(actor Actor, paper PaperAccess) bool {
	if !actor.Active {
		return false
	}
	return CanView(actor, paper) || paper.Status == models.PaperStatusAccepted
}

// CanSeeConfidentialComments reports whether actor may read reviewers'
// confidential comments.
func CanSeeConfidentialComments(actor Actor) bool {
	return actor.Active && actor.Role == models.RoleAdmin
}
