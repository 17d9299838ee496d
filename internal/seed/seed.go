// Package seed loads users, conferences and categories from a YAML fixture.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/services"
)

type User struct {
	ID     uuid.UUID       `yaml:"id"`
	Email  string          `yaml:"email"`
	Name   string          `yaml:"name"`
	Role   models.UserRole `yaml:"role"`
	Active *bool           `yaml:"active"`
}

type Conference struct {
	ID                 uuid.UUID               `yaml:"id"`
	Name               string                  `yaml:"name"`
	Year               int                     `yaml:"year"`
	SubmissionDeadline time.Time               `yaml:"submission_deadline"`
	ReviewDeadline     *time.Time              `yaml:"review_deadline"`
	Status             models.ConferenceStatus `yaml:"status"`
	Description        string                  `yaml:"description"`
	Website            string                  `yaml:"website"`
	ReviewsPerPaper    int                     `yaml:"reviews_per_paper"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// Fixture is the document layout of a seed file.
type Fixture struct {
	Users       []User       `yaml:"users"`
	Conferences []Conference `yaml:"conferences"`
	Categories  []Category   `yaml:"categories"`
}

// Result counts what a load created and what already existed.
type Result struct {
	Created int
	Skipped int
}

func Parse(data []byte) (*Fixture, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("seed: fixture is empty")
	}
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decode fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *Fixture) validate() error {
	for i, u := range f.Users {
		if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("seed: users[%d]: email and name are required", i)
		}
		if u.Role != "" && !u.Role.Valid() {
			return fmt.Errorf("seed: users[%d]: unknown role %q", i, u.Role)
		}
	}
	for i, c := range f.Conferences {
		if strings.TrimSpace(c.Name) == "" || c.Year == 0 || c.SubmissionDeadline.IsZero() {
			return fmt.Errorf("seed: conferences[%d]: name, year and submission_deadline are required", i)
		}
		if c.Status != "" && !c.Status.Valid() {
			return fmt.Errorf("seed: conferences[%d]: unknown status %q", i, c.Status)
		}
	}
	for i, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("seed: categories[%d]: name is required", i)
		}
	}
	return nil
}

// Apply writes the fixture into store. Every record gets its own
// transaction, and records that already exist are skipped, so loading the
// same file twice is harmless.
func Apply(ctx context.Context, store services.Store, f *Fixture, log zerolog.Logger) (Result, error) {
	var res Result

	for _, u := range f.Users {
		user := models.User{ID: u.ID, Email: strings.TrimSpace(u.Email), Name: strings.TrimSpace(u.Name), Role: u.Role, IsActive: true}
		if user.Role == "" {
			user.Role = models.RoleAuthor
		}
		if u.Active != nil {
			user.IsActive = *u.Active
		}
		if err := create(ctx, store, &res, func(tx services.StoreTx) error { return tx.CreateUser(ctx, &user) }); err != nil {
			return res, fmt.Errorf("seed: user %s: %w", user.Email, err)
		}
	}

	existing, err := store.ListConferences(ctx)
	if err != nil {
		return res, fmt.Errorf("seed: list conferences: %w", err)
	}
	for _, c := range f.Conferences {
		if hasConference(existing, c) {
			res.Skipped++
			continue
		}
		conf := models.Conference{
			ID:                 c.ID,
			Name:               strings.TrimSpace(c.Name),
			Year:               c.Year,
			SubmissionDeadline: c.SubmissionDeadline,
			ReviewDeadline:     c.ReviewDeadline,
			Status:             c.Status,
			Description:        c.Description,
			Website:            c.Website,
			ReviewsPerPaper:    c.ReviewsPerPaper,
		}
		if conf.Status == "" {
			conf.Status = models.ConferenceStatusUpcoming
		}
		if conf.ReviewsPerPaper < 1 {
			conf.ReviewsPerPaper = models.DefaultReviewsPerPaper
		}
		if err := create(ctx, store, &res, func(tx services.StoreTx) error { return tx.SaveConference(ctx, &conf) }); err != nil {
			return res, fmt.Errorf("seed: conference %s: %w", conf.Name, err)
		}
		existing = append(existing, conf)
	}

	for _, c := range f.Categories {
		cat := models.Category{Name: strings.TrimSpace(c.Name), Description: c.Description, Color: c.Color}
		if err := create(ctx, store, &res, func(tx services.StoreTx) error { return tx.CreateCategory(ctx, &cat) }); err != nil {
			return res, fmt.Errorf("seed: category %s: %w", cat.Name, err)
		}
	}

	log.Info().Int("created", res.Created).Int("skipped", res.Skipped).Msg("Seed fixture applied")
	return res, nil
}

func create(ctx context.Context, store services.Store, res *Result, fn func(tx services.StoreTx) error) error {
	err := store.RunInTx(ctx, fn)
	switch {
	case err == nil:
		res.Created++
		return nil
	case errors.Is(err, services.ErrDuplicate):
		res.Skipped++
		return nil
	default:
		return err
	}
}

func hasConference(existing []models.Conference, c Conference) bool {
	for _, e := range existing {
		if (c.ID != uuid.Nil && e.ID == c.ID) || (strings.EqualFold(e.Name, strings.TrimSpace(c.Name)) && e.Year == c.Year) {
			return true
		}
	}
	return false
}
