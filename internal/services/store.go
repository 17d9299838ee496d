package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"paperflow_go_backend/internal/models"
)

// Infrastructure sentinels returned by store implementations. Services
// translate them into typed workflow errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("duplicate record")
	ErrAlreadyCompleted = errors.New("review already completed")
)

// PaperFilter narrows ListPapers. Zero values mean "no constraint".
type PaperFilter struct {
	// VisibleTo restricts the result to papers the user authored, papers
	// they hold a review for, and accepted papers.
	VisibleTo    *uuid.UUID
	ConferenceID *uuid.UUID
	CategoryID   *uuid.UUID
	Statuses     []models.PaperStatus
	Query        string
}

// UserFilter narrows ListUsers. Query matches name or email, case-insensitively.
type UserFilter struct {
	Roles  []models.UserRole
	Query  string
	Active *bool
	// Exclude drops these ids from the result.
	Exclude []uuid.UUID
}

// ReviewCount is the assigned/completed tally of a paper's reviews.
type ReviewCount struct {
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
}

// StoreReader holds the queries that need no transaction.
type StoreReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsersByID(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	// ListUsers returns matching users ordered by name.
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	// GetPaper loads the paper with its authors, categories and conference.
	GetPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error)
	ListPapers(ctx context.Context, filter PaperFilter) ([]models.Paper, error)
	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	// ListPaperReviews loads the paper's reviews with their reviewer.
	ListPaperReviews(ctx context.Context, paperID uuid.UUID) ([]models.Review, error)
	// ListReviewerReviews loads a reviewer's reviews with paper and conference.
	ListReviewerReviews(ctx context.Context, reviewerID uuid.UUID) ([]models.Review, error)
	ReviewCounts(ctx context.Context, paperIDs []uuid.UUID) (map[uuid.UUID]ReviewCount, error)
	ListStatusHistory(ctx context.Context, paperID uuid.UUID) ([]models.PaperStatusChange, error)
	GetConference(ctx context.Context, id uuid.UUID) (*models.Conference, error)
	ListConferences(ctx context.Context) ([]models.Conference, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListCategoriesByID(ctx context.Context, ids []uuid.UUID) ([]models.Category, error)
}

// StoreTx is the unit of work handed to RunInTx. Lock* methods hold the row
// until the transaction ends.
type StoreTx interface {
	StoreReader

	LockPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error)
	LockReview(ctx context.Context, id uuid.UUID) (*models.Review, error)

	// CreateReview returns ErrDuplicate when the (paper, reviewer) pair exists.
	CreateReview(ctx context.Context, review *models.Review) error
	// CompleteReview writes the submission only if the review is still
	// incomplete, returning ErrAlreadyCompleted otherwise.
	CompleteReview(ctx context.Context, review *models.Review) error
	CountCompletedReviews(ctx context.Context, paperID uuid.UUID) (int, error)
	// RecordStatusChange updates the paper's status and appends the history row.
	RecordStatusChange(ctx context.Context, change *models.PaperStatusChange) error

	CreatePaper(ctx context.Context, paper *models.Paper) error
	CreateUser(ctx context.Context, user *models.User) error
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) error
	// UpdateUser writes the user's name and role.
	UpdateUser(ctx context.Context, user *models.User) error
	SaveConference(ctx context.Context, conference *models.Conference) error
	// CreateCategory returns ErrDuplicate when the name is taken.
	CreateCategory(ctx context.Context, category *models.Category) error
}

// Store is the Review Record Store. Every mutation goes through RunInTx; fn's
// error rolls the transaction back and is returned unchanged.
type Store interface {
	StoreReader
	RunInTx(ctx context.Context, fn func(tx StoreTx) error) error
}
