package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperflow_go_backend/internal/models"
)

const pgUniqueViolation = "23505"

// GormStore is the postgres-backed Store. Row locks use SELECT ... FOR UPDATE
// and the (paper_id, reviewer_id) unique index backs duplicate detection.
type GormStore struct {
	gormReader
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormReader{db: db}}
}

func (s *GormStore) RunInTx(ctx context.Context, fn func(tx StoreTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormReader{db: tx}})
	})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type gormReader struct {
	db *gorm.DB
}

func (r gormReader) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r gormReader) ListUsersByID(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, translateError(err)
}

func (r gormReader) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if len(filter.Roles) > 0 {
		q = q.Where("role IN ?", filter.Roles)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	if len(filter.Exclude) > 0 {
		q = q.Where("id NOT IN ?", filter.Exclude)
	}

	var users []models.User
	err := q.Order("name, email").Find(&users).Error
	return users, translateError(err)
}

func (r gormReader) GetPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error) {
	var paper models.Paper
	err := r.db.WithContext(ctx).
		Preload("Authors").
		Preload("Categories").
		Preload("Conference").
		First(&paper, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &paper, nil
}

func (r gormReader) ListPapers(ctx context.Context, filter PaperFilter) ([]models.Paper, error) {
	q := r.db.WithContext(ctx).Model(&models.Paper{}).
		Preload("Authors").
		Preload("Categories").
		Preload("Conference")

	if filter.VisibleTo != nil {
		authored := r.db.Table("paper_authors").Select("paper_id").Where("user_id = ?", *filter.VisibleTo)
		reviewing := r.db.Model(&models.Review{}).Select("paper_id").Where("reviewer_id = ?", *filter.VisibleTo)
		q = q.Where("(papers.status = ? OR papers.id IN (?) OR papers.id IN (?))", models.PaperStatusAccepted, authored, reviewing)
	}
	if filter.ConferenceID != nil {
		q = q.Where("papers.conference_id = ?", *filter.ConferenceID)
	}
	if filter.CategoryID != nil {
		tagged := r.db.Table("paper_categories").Select("paper_id").Where("category_id = ?", *filter.CategoryID)
		q = q.Where("papers.id IN (?)", tagged)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("papers.status IN ?", filter.Statuses)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("papers.title ILIKE ? OR papers.abstract ILIKE ? OR papers.keywords ILIKE ?", pattern, pattern, pattern)
	}

	var papers []models.Paper
	err := q.Order("papers.submitted_at DESC").Find(&papers).Error
	return papers, translateError(err)
}

func (r gormReader) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r gormReader) ListPaperReviews(ctx context.Context, paperID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Reviewer").
		Where("paper_id = ?", paperID).
		Order("assigned_at").
		Find(&reviews).Error
	return reviews, translateError(err)
}

func (r gormReader) ListReviewerReviews(ctx context.Context, reviewerID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Paper").
		Preload("Paper.Conference").
		Where("reviewer_id = ?", reviewerID).
		Order("assigned_at DESC").
		Find(&reviews).Error
	return reviews, translateError(err)
}

func (r gormReader) ReviewCounts(ctx context.Context, paperIDs []uuid.UUID) (map[uuid.UUID]ReviewCount, error) {
	counts := make(map[uuid.UUID]ReviewCount, len(paperIDs))
	if len(paperIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PaperID   uuid.UUID
		Assigned  int
		Completed int
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("paper_id, COUNT(*) AS assigned, COUNT(*) FILTER (WHERE is_completed) AS completed").
		Where("paper_id IN ?", paperIDs).
		Group("paper_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, row := range rows {
		counts[row.PaperID] = ReviewCount{Assigned: row.Assigned, Completed: row.Completed}
	}
	return counts, nil
}

func (r gormReader) ListStatusHistory(ctx context.Context, paperID uuid.UUID) ([]models.PaperStatusChange, error) {
	var history []models.PaperStatusChange
	err := r.db.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("created_at, id").
		Find(&history).Error
	return history, translateError(err)
}

func (r gormReader) GetConference(ctx context.Context, id uuid.UUID) (*models.Conference, error) {
	var conference models.Conference
	if err := r.db.WithContext(ctx).First(&conference, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &conference, nil
}

func (r gormReader) ListConferences(ctx context.Context) ([]models.Conference, error) {
	var conferences []models.Conference
	err := r.db.WithContext(ctx).Order("year DESC, name").Find(&conferences).Error
	return conferences, translateError(err)
}

func (r gormReader) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, translateError(err)
}

func (r gormReader) ListCategoriesByID(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error
	return categories, translateError(err)
}

type gormTx struct {
	gormReader
}

func (t *gormTx) LockPaper(ctx context.Context, id uuid.UUID) (*models.Paper, error) {
	var paper models.Paper
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&paper, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}

	// Associations are read after the lock so the FOR UPDATE clause stays on
	// the papers row only.
	if err := t.db.WithContext(ctx).Model(&paper).Association("Authors").Find(&paper.Authors); err != nil {
		return nil, translateError(err)
	}
	conference, err := t.GetConference(ctx, paper.ConferenceID)
	if err != nil {
		return nil, err
	}
	paper.Conference = conference
	return &paper, nil
}

func (t *gormTx) LockReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&review, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (t *gormTx) CreateReview(ctx context.Context, review *models.Review) error {
	return translateError(t.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error)
}

func (t *gormTx) CompleteReview(ctx context.Context, review *models.Review) error {
	res := t.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND is_completed = ?", review.ID, false).
		Updates(map[string]interface{}{
			"is_completed":          true,
			"completed_at":          review.CompletedAt,
			"technical_quality":     review.TechnicalQuality,
			"novelty":               review.Novelty,
			"clarity":               review.Clarity,
			"significance":          review.Significance,
			"overall_score":         review.OverallScore,
			"recommendation":        review.Recommendation,
			"comments":              review.Comments,
			"confidential_comments": review.ConfidentialComments,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

func (t *gormTx) CountCompletedReviews(ctx context.Context, paperID uuid.UUID) (int, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.Review{}).
		Where("paper_id = ? AND is_completed = ?", paperID, true).
		Count(&n).Error
	return int(n), translateError(err)
}

func (t *gormTx) RecordStatusChange(ctx context.Context, change *models.PaperStatusChange) error {
	res := t.db.WithContext(ctx).Model(&models.Paper{}).
		Where("id = ?", change.PaperID).
		Updates(map[string]interface{}{"status": change.NewStatus, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return translateError(t.db.WithContext(ctx).Create(change).Error)
}

func (t *gormTx) CreatePaper(ctx context.Context, paper *models.Paper) error {
	return translateError(t.db.WithContext(ctx).Omit("Conference").Create(paper).Error)
}

func (t *gormTx) CreateUser(ctx context.Context, user *models.User) error {
	if err := t.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err)
	}
	// is_active defaults to true, so a false zero value is never inserted.
	if !user.IsActive {
		return t.SetUserActive(ctx, user.ID, false)
	}
	return nil
}

func (t *gormTx) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := t.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) UpdateUser(ctx context.Context, user *models.User) error {
	res := t.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{"name": user.Name, "role": user.Role, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) SaveConference(ctx context.Context, conference *models.Conference) error {
	return translateError(t.db.WithContext(ctx).Save(conference).Error)
}

func (t *gormTx) CreateCategory(ctx context.Context, category *models.Category) error {
	return translateError(t.db.WithContext(ctx).Create(category).Error)
}
