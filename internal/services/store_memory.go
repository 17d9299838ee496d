package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"paperflow_go_backend/internal/models"
)

// MemoryStore is an in-process Store for development and tests. RunInTx
// holds the write lock for the whole unit of work and works on a copy of
// the state, so a failed fn leaves nothing behind.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	users        map[uuid.UUID]models.User
	papers       map[uuid.UUID]models.Paper
	paperAuthors map[uuid.UUID][]uuid.UUID
	paperCats    map[uuid.UUID][]uuid.UUID
	reviews      map[uuid.UUID]models.Review
	history      []models.PaperStatusChange
	conferences  map[uuid.UUID]models.Conference
	categories   map[uuid.UUID]models.Category
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		users:        make(map[uuid.UUID]models.User),
		papers:       make(map[uuid.UUID]models.Paper),
		paperAuthors: make(map[uuid.UUID][]uuid.UUID),
		paperCats:    make(map[uuid.UUID][]uuid.UUID),
		reviews:      make(map[uuid.UUID]models.Review),
		conferences:  make(map[uuid.UUID]models.Conference),
		categories:   make(map[uuid.UUID]models.Category),
	}}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		users:        make(map[uuid.UUID]models.User, len(s.users)),
		papers:       make(map[uuid.UUID]models.Paper, len(s.papers)),
		paperAuthors: make(map[uuid.UUID][]uuid.UUID, len(s.paperAuthors)),
		paperCats:    make(map[uuid.UUID][]uuid.UUID, len(s.paperCats)),
		reviews:      make(map[uuid.UUID]models.Review, len(s.reviews)),
		history:      append([]models.PaperStatusChange(nil), s.history...),
		conferences:  make(map[uuid.UUID]models.Conference, len(s.conferences)),
		categories:   make(map[uuid.UUID]models.Category, len(s.categories)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.papers {
		c.papers[k] = v
	}
	for k, v := range s.paperAuthors {
		c.paperAuthors[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.paperCats {
		c.paperCats[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.conferences {
		c.conferences[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	return c
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memoryTx{memoryReader{working}}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *MemoryStore) reader() memoryReader {
	return memoryReader{s.state}
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetUser(ctx, id)
}

func (s *MemoryStore) ListUsersByID(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListUsersByID(ctx, ids)
}

func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListUsers(ctx, filter)
}

func (s *MemoryStore) GetPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetPaper(ctx, id)
}

func (s *MemoryStore) ListPapers(ctx context.Context, filter PaperFilter) ([]models.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListPapers(ctx, filter)
}

func (s *MemoryStore) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetReview(ctx, id)
}

func (s *MemoryStore) ListPaperReviews(ctx context.Context, paperID uuid.UUID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListPaperReviews(ctx, paperID)
}

func (s *MemoryStore) ListReviewerReviews(ctx context.Context, reviewerID uuid.UUID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListReviewerReviews(ctx, reviewerID)
}

func (s *MemoryStore) ReviewCounts(ctx context.Context, paperIDs []uuid.UUID) (map[uuid.UUID]ReviewCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ReviewCounts(ctx, paperIDs)
}

func (s *MemoryStore) ListStatusHistory(ctx context.Context, paperID uuid.UUID) ([]models.PaperStatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListStatusHistory(ctx, paperID)
}

func (s *MemoryStore) GetConference(ctx context.Context, id uuid.UUID) (*models.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetConference(ctx, id)
}

func (s *MemoryStore) ListConferences(ctx context.Context) ([]models.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListConferences(ctx)
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListCategories(ctx)
}

func (s *MemoryStore) ListCategoriesByID(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListCategoriesByID(ctx, ids)
}

type memoryReader struct {
	s *memoryState
}

func (r memoryReader) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryReader) ListUsersByID(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r memoryReader) ListUsers(_ context.Context, filter UserFilter) ([]models.User, error) {
	q := strings.ToLower(filter.Query)
	users := make([]models.User, 0)
	for _, u := range r.s.users {
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, u.Role) {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		if containsID(filter.Exclude, u.ID) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func hasRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r memoryReader) hydrate(p models.Paper) models.Paper {
	p.Authors = nil
	for _, id := range r.s.paperAuthors[p.ID] {
		if u, ok := r.s.users[id]; ok {
			p.Authors = append(p.Authors, u)
		}
	}
	p.Categories = nil
	for _, id := range r.s.paperCats[p.ID] {
		if c, ok := r.s.categories[id]; ok {
			p.Categories = append(p.Categories, c)
		}
	}
	p.Conference = nil
	if c, ok := r.s.conferences[p.ConferenceID]; ok {
		p.Conference = &c
	}
	return p
}

func (r memoryReader) GetPaper(_ context.Context, id uuid.UUID) (*models.Paper, error) {
	p, ok := r.s.papers[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = r.hydrate(p)
	return &p, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (r memoryReader) reviewing(paperID, userID uuid.UUID) bool {
	for _, rv := range r.s.reviews {
		if rv.PaperID == paperID && rv.ReviewerID == userID {
			return true
		}
	}
	return false
}

func (r memoryReader) matches(p models.Paper, f PaperFilter) bool {
	if f.VisibleTo != nil {
		visible := p.Status == models.PaperStatusAccepted ||
			containsID(r.s.paperAuthors[p.ID], *f.VisibleTo) ||
			r.reviewing(p.ID, *f.VisibleTo)
		if !visible {
			return false
		}
	}
	if f.ConferenceID != nil && p.ConferenceID != *f.ConferenceID {
		return false
	}
	if f.CategoryID != nil && !containsID(r.s.paperCats[p.ID], *f.CategoryID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if p.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		text := strings.ToLower(p.Title + "\n" + p.Abstract + "\n" + p.Keywords)
		if !strings.Contains(text, q) {
			return false
		}
	}
	return true
}

func (r memoryReader) ListPapers(_ context.Context, filter PaperFilter) ([]models.Paper, error) {
	papers := make([]models.Paper, 0)
	for _, p := range r.s.papers {
		if r.matches(p, filter) {
			papers = append(papers, r.hydrate(p))
		}
	}
	sort.Slice(papers, func(i, j int) bool {
		return papers[i].SubmittedAt.After(papers[j].SubmittedAt)
	})
	return papers, nil
}

func (r memoryReader) GetReview(_ context.Context, id uuid.UUID) (*models.Review, error) {
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rv, nil
}

func (r memoryReader) ListPaperReviews(_ context.Context, paperID uuid.UUID) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	for _, rv := range r.s.reviews {
		if rv.PaperID != paperID {
			continue
		}
		if u, ok := r.s.users[rv.ReviewerID]; ok {
			rv.Reviewer = &u
		}
		reviews = append(reviews, rv)
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].AssignedAt.Before(reviews[j].AssignedAt)
	})
	return reviews, nil
}

func (r memoryReader) ListReviewerReviews(_ context.Context, reviewerID uuid.UUID) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	for _, rv := range r.s.reviews {
		if rv.ReviewerID != reviewerID {
			continue
		}
		if p, ok := r.s.papers[rv.PaperID]; ok {
			p = r.hydrate(p)
			rv.Paper = &p
		}
		reviews = append(reviews, rv)
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].AssignedAt.After(reviews[j].AssignedAt)
	})
	return reviews, nil
}

func (r memoryReader) ReviewCounts(_ context.Context, paperIDs []uuid.UUID) (map[uuid.UUID]ReviewCount, error) {
	counts := make(map[uuid.UUID]ReviewCount, len(paperIDs))
	for _, rv := range r.s.reviews {
		if !containsID(paperIDs, rv.PaperID) {
			continue
		}
		c := counts[rv.PaperID]
		c.Assigned++
		if rv.IsCompleted {
			c.Completed++
		}
		counts[rv.PaperID] = c
	}
	return counts, nil
}

func (r memoryReader) ListStatusHistory(_ context.Context, paperID uuid.UUID) ([]models.PaperStatusChange, error) {
	history := make([]models.PaperStatusChange, 0)
	for _, h := range r.s.history {
		if h.PaperID == paperID {
			history = append(history, h)
		}
	}
	return history, nil
}

func (r memoryReader) GetConference(_ context.Context, id uuid.UUID) (*models.Conference, error) {
	c, ok := r.s.conferences[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r memoryReader) ListConferences(_ context.Context) ([]models.Conference, error) {
	conferences := make([]models.Conference, 0, len(r.s.conferences))
	for _, c := range r.s.conferences {
		conferences = append(conferences, c)
	}
	sort.Slice(conferences, func(i, j int) bool {
		if conferences[i].Year != conferences[j].Year {
			return conferences[i].Year > conferences[j].Year
		}
		return conferences[i].Name < conferences[j].Name
	})
	return conferences, nil
}

func (r memoryReader) ListCategories(_ context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r memoryReader) ListCategoriesByID(_ context.Context, ids []uuid.UUID) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

type memoryTx struct {
	memoryReader
}

func (t *memoryTx) LockPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error) {
	return t.GetPaper(ctx, id)
}

func (t *memoryTx) LockReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return t.GetReview(ctx, id)
}

func (t *memoryTx) CreateReview(_ context.Context, review *models.Review) error {
	if t.reviewing(review.PaperID, review.ReviewerID) {
		return ErrDuplicate
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	stored := *review
	stored.Paper, stored.Reviewer = nil, nil
	t.s.reviews[review.ID] = stored
	return nil
}

func (t *memoryTx) CompleteReview(_ context.Context, review *models.Review) error {
	stored, ok := t.s.reviews[review.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.IsCompleted {
		return ErrAlreadyCompleted
	}
	stored.IsCompleted = true
	stored.CompletedAt = review.CompletedAt
	stored.TechnicalQuality = review.TechnicalQuality
	stored.Novelty = review.Novelty
	stored.Clarity = review.Clarity
	stored.Significance = review.Significance
	stored.OverallScore = review.OverallScore
	stored.Recommendation = review.Recommendation
	stored.Comments = review.Comments
	stored.ConfidentialComments = review.ConfidentialComments
	t.s.reviews[review.ID] = stored
	return nil
}

func (t *memoryTx) CountCompletedReviews(_ context.Context, paperID uuid.UUID) (int, error) {
	n := 0
	for _, rv := range t.s.reviews {
		if rv.PaperID == paperID && rv.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) RecordStatusChange(_ context.Context, change *models.PaperStatusChange) error {
	p, ok := t.s.papers[change.PaperID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	p.Status = change.NewStatus
	p.UpdatedAt = now
	t.s.papers[p.ID] = p

	change.ID = uint(len(t.s.history) + 1)
	if change.CreatedAt.IsZero() {
		change.CreatedAt = now
	}
	t.s.history = append(t.s.history, *change)
	return nil
}

func (t *memoryTx) CreatePaper(_ context.Context, paper *models.Paper) error {
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if _, exists := t.s.papers[paper.ID]; exists {
		return ErrDuplicate
	}
	if paper.Status == "" {
		paper.Status = models.PaperStatusSubmitted
	}
	authors := make([]uuid.UUID, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		if !containsID(authors, a.ID) {
			authors = append(authors, a.ID)
		}
	}
	categories := make([]uuid.UUID, 0, len(paper.Categories))
	for _, c := range paper.Categories {
		if !containsID(categories, c.ID) {
			categories = append(categories, c.ID)
		}
	}

	stored := *paper
	stored.Authors, stored.Categories, stored.Conference = nil, nil, nil
	t.s.papers[paper.ID] = stored
	t.s.paperAuthors[paper.ID] = authors
	t.s.paperCats[paper.ID] = categories
	return nil
}

func (t *memoryTx) CreateUser(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, u := range t.s.users {
		if u.ID == user.ID || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.Role == "" {
		user.Role = models.RoleAuthor
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	t.s.users[user.ID] = *user
	return nil
}

func (t *memoryTx) SetUserActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := t.s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	t.s.users[id] = u
	return nil
}

func (t *memoryTx) UpdateUser(_ context.Context, user *models.User) error {
	u, ok := t.s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	u.Name = user.Name
	u.Role = user.Role
	u.UpdatedAt = time.Now().UTC()
	t.s.users[user.ID] = u
	return nil
}

func (t *memoryTx) SaveConference(_ context.Context, conference *models.Conference) error {
	now := time.Now().UTC()
	if conference.ID == uuid.Nil {
		conference.ID = uuid.New()
	}
	if existing, ok := t.s.conferences[conference.ID]; ok {
		conference.CreatedAt = existing.CreatedAt
	} else {
		conference.CreatedAt = now
	}
	conference.UpdatedAt = now
	t.s.conferences[conference.ID] = *conference
	return nil
}

func (t *memoryTx) CreateCategory(_ context.Context, category *models.Category) error {
	for _, c := range t.s.categories {
		if c.Name == category.Name {
			return ErrDuplicate
		}
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if category.Color == "" {
		category.Color = "#007bff"
	}
	t.s.categories[category.ID] = *category
	return nil
}
