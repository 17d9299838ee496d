package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"paperflow_go_backend/internal/metrics"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, events ...Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]EventType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	ctx        context.Context
	store      *MemoryStore
	notifier   *recordingNotifier
	metrics    *metrics.Metrics
	admin      models.User
	author     models.User
	reviewer1  models.User
	reviewer2  models.User
	reviewer3  models.User
	conference models.Conference
	paper      models.Paper

	assignments *DefaultAssignmentService
	reviews     *DefaultReviewService
	scores      *DefaultScoreService
}

func newFixture(t *testing.T, reviewsPerPaper int) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    NewMemoryStore(),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.admin = f.seedUser(t, "admin@example.org", models.RoleAdmin, true)
	f.author = f.seedUser(t, "author@example.org", models.RoleAuthor, true)
	f.reviewer1 = f.seedUser(t, "r1@example.org", models.RoleReviewer, true)
	f.reviewer2 = f.seedUser(t, "r2@example.org", models.RoleReviewer, true)
	f.reviewer3 = f.seedUser(t, "r3@example.org", models.RoleReviewer, true)
	f.conference = f.seedConference(t, "ReviewConf", reviewsPerPaper)
	f.paper = f.seedPaper(t, "A study of review workflows", f.author)

	log := zerolog.Nop()
	f.assignments = NewAssignmentService(f.store, f.notifier, f.metrics, log)
	f.reviews = NewReviewService(f.store, f.notifier, f.metrics, log, workflow.DefaultMinCommentLength)
	f.scores = NewScoreService(f.store)
	return f
}

func (f *fixture) seedUser(t *testing.T, email string, role models.UserRole, active bool) models.User {
	t.Helper()
	u := models.User{ID: uuid.New(), Email: email, Name: strings.Split(email, "@")[0], Role: role, IsActive: active}
	require.NoError(t, f.store.RunInTx(f.ctx, func(tx StoreTx) error {
		return tx.CreateUser(f.ctx, &u)
	}))
	return u
}

func (f *fixture) seedConference(t *testing.T, name string, reviewsPerPaper int) models.Conference {
	t.Helper()
	c := models.Conference{
		Name:               name,
		Year:               2025,
		SubmissionDeadline: time.Now().Add(30 * 24 * time.Hour),
		Status:             models.ConferenceStatusActive,
		ReviewsPerPaper:    reviewsPerPaper,
	}
	require.NoError(t, f.store.RunInTx(f.ctx, func(tx StoreTx) error {
		return tx.SaveConference(f.ctx, &c)
	}))
	return c
}

func (f *fixture) seedPaper(t *testing.T, title string, authors ...models.User) models.Paper {
	t.Helper()
	p := models.Paper{
		Title:         title,
		Abstract:      strings.Repeat("An abstract long enough to satisfy validation. ", 3),
		Status:        models.PaperStatusSubmitted,
		SubmittedAt:   time.Now().UTC(),
		SubmittedByID: authors[0].ID,
		ConferenceID:  f.conference.ID,
		Authors:       authors,
	}
	require.NoError(t, f.store.RunInTx(f.ctx, func(tx StoreTx) error {
		return tx.CreatePaper(f.ctx, &p)
	}))
	return p
}

func actorOf(u models.User) workflow.Actor {
	return workflow.ActorFromUser(&u)
}

func (f *fixture) paperStatus(t *testing.T, id uuid.UUID) models.PaperStatus {
	t.Helper()
	p, err := f.store.GetPaper(f.ctx, id)
	require.NoError(t, err)
	return p.Status
}

func (f *fixture) assign(t *testing.T, paperID uuid.UUID, reviewer models.User) *models.Review {
	t.Helper()
	review, err := f.assignments.AssignReviewer(f.ctx, actorOf(f.admin), paperID, reviewer.ID, nil)
	require.NoError(t, err)
	return review
}

func submission(overall int, rec models.Recommendation) workflow.ReviewSubmission {
	return workflow.ReviewSubmission{
		Scores:         workflow.Scores{TechnicalQuality: 4, Novelty: 4, Clarity: 3, Significance: 4, Overall: overall},
		Recommendation: rec,
		Comments:       strings.Repeat("Thorough evaluation of the method. ", 3),
	}
}
