package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

const (
	minConferenceYear      = 2020
	maxConferenceYear      = 2030
	maxReviewsPerPaper     = 10
	maxConferenceNameLen   = 200
	maxCategoryNameLen     = 100
	maxCategoryColorLength = 7
)

type ConferenceInput struct {
	Name               string                  `json:"name"`
	Year               int                     `json:"year"`
	SubmissionDeadline time.Time               `json:"submission_deadline"`
	ReviewDeadline     *time.Time              `json:"review_deadline"`
	NotificationDate   *time.Time              `json:"notification_date"`
	Status             models.ConferenceStatus `json:"status"`
	Description        string                  `json:"description"`
	Website            string                  `json:"website"`
	ReviewsPerPaper    int                     `json:"reviews_per_paper"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type ConferenceService interface {
	CreateConference(ctx context.Context, actor workflow.Actor, input ConferenceInput) (*models.Conference, error)
	UpdateConference(ctx context.Context, actor workflow.Actor, id uuid.UUID, input ConferenceInput) (*models.Conference, error)
	GetConference(ctx context.Context, id uuid.UUID) (*models.Conference, error)
	ListConferences(ctx context.Context) ([]models.Conference, error)
	CreateCategory(ctx context.Context, actor workflow.Actor, input CategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type DefaultConferenceService struct {
	store Store
	log   zerolog.Logger
}

func NewConferenceService(store Store, log zerolog.Logger) *DefaultConferenceService {
	return &DefaultConferenceService{store: store, log: log}
}

func (in *ConferenceInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || len(in.Name) > maxConferenceNameLen {
		return apperrors.New400Error(fmt.Sprintf("Conference name must be 1 to %d characters", maxConferenceNameLen))
	}
	if in.Year < minConferenceYear || in.Year > maxConferenceYear {
		return apperrors.New400Error(fmt.Sprintf("Year must be between %d and %d", minConferenceYear, maxConferenceYear))
	}
	if in.SubmissionDeadline.IsZero() {
		return apperrors.New400Error("Submission deadline is required")
	}
	if in.ReviewsPerPaper == 0 {
		in.ReviewsPerPaper = models.DefaultReviewsPerPaper
	}
	if in.ReviewsPerPaper < 1 || in.ReviewsPerPaper > maxReviewsPerPaper {
		return apperrors.New400Error(fmt.Sprintf("Reviews per paper must be between 1 and %d", maxReviewsPerPaper))
	}
	if in.Status == "" {
		in.Status = models.ConferenceStatusUpcoming
	}
	if !in.Status.Valid() {
		return apperrors.New400Error(fmt.Sprintf("Unknown conference status %q", in.Status))
	}
	return nil
}

func (in ConferenceInput) apply(c *models.Conference) {
	c.Name = in.Name
	c.Year = in.Year
	c.SubmissionDeadline = in.SubmissionDeadline
	c.ReviewDeadline = in.ReviewDeadline
	c.NotificationDate = in.NotificationDate
	c.Status = in.Status
	c.Description = strings.TrimSpace(in.Description)
	c.Website = strings.TrimSpace(in.Website)
	c.ReviewsPerPaper = in.ReviewsPerPaper
}

func (s *DefaultConferenceService) CreateConference(ctx context.Context, actor workflow.Actor, input ConferenceInput) (*models.Conference, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	conference := &models.Conference{}
	input.apply(conference)
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		return tx.SaveConference(ctx, conference)
	})
	if err != nil {
		return nil, storeError(err, "Conference not found")
	}
	s.log.Info().Str("conferenceID", conference.ID.String()).Str("name", conference.Name).Msg("Conference created")
	return conference, nil
}

// UpdateConference replaces a conference's settings. Lowering
// reviews_per_paper takes effect at the next review completion.
func (s *DefaultConferenceService) UpdateConference(ctx context.Context, actor workflow.Actor, id uuid.UUID, input ConferenceInput) (*models.Conference, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	var conference *models.Conference
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		existing, err := tx.GetConference(ctx, id)
		if err != nil {
			return err
		}
		input.apply(existing)
		if err := tx.SaveConference(ctx, existing); err != nil {
			return err
		}
		conference = existing
		return nil
	})
	if err != nil {
		return nil, storeError(err, "Conference not found")
	}
	s.log.Info().Str("conferenceID", id.String()).Int("reviewsPerPaper", conference.ReviewsPerPaper).Msg("Conference updated")
	return conference, nil
}

func (s *DefaultConferenceService) GetConference(ctx context.Context, id uuid.UUID) (*models.Conference, error) {
	conference, err := s.store.GetConference(ctx, id)
	if err != nil {
		return nil, storeError(err, "Conference not found")
	}
	return conference, nil
}

func (s *DefaultConferenceService) ListConferences(ctx context.Context) ([]models.Conference, error) {
	conferences, err := s.store.ListConferences(ctx)
	if err != nil {
		return nil, apperrors.New500Error(err)
	}
	return conferences, nil
}

func (s *DefaultConferenceService) CreateCategory(ctx context.Context, actor workflow.Actor, input CategoryInput) (*models.Category, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxCategoryNameLen {
		return nil, apperrors.New400Error(fmt.Sprintf("Category name must be 1 to %d characters", maxCategoryNameLen))
	}
	color := strings.TrimSpace(input.Color)
	if len(color) > maxCategoryColorLength {
		return nil, apperrors.New400Error("Color must be a hex code such as #007bff")
	}

	category := &models.Category{Name: name, Description: strings.TrimSpace(input.Description), Color: color}
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		return tx.CreateCategory(ctx, category)
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, apperrors.New400Error(fmt.Sprintf("Category %q already exists", name))
	}
	if err != nil {
		return nil, apperrors.New500Error(err)
	}
	return category, nil
}

func (s *DefaultConferenceService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.New500Error(err)
	}
	return categories, nil
}
