package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/manuscript"
	"paperflow_go_backend/internal/metrics"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

const (
	minTitleLength    = 5
	maxTitleLength    = 500
	minAbstractLength = 100
	maxAbstractLength = 5000
	maxKeywordsLength = 500
)

// PaperSubmission is the author-supplied part of a new paper.
type PaperSubmission struct {
	Title        string      `json:"title"`
	Abstract     string      `json:"abstract"`
	Keywords     string      `json:"keywords"`
	ConferenceID uuid.UUID   `json:"conference_id"`
	CategoryIDs  []uuid.UUID `json:"category_ids"`
	CoAuthorIDs  []uuid.UUID `json:"co_author_ids"`
}

// Upload is a manuscript file received with a submission.
type Upload struct {
	Filename string
	Data     []byte
}

// BrowseFilter narrows a paper listing.
type BrowseFilter struct {
	ConferenceID *uuid.UUID
	CategoryID   *uuid.UUID
	Status       *models.PaperStatus
	Query        string
}

// PaperDetail is a paper as the requesting actor is allowed to see it.
type PaperDetail struct {
	Paper    *models.Paper          `json:"paper"`
	Access   AccessDecision         `json:"access"`
	Reviews  []models.Review        `json:"reviews"`
	MyReview *models.Review         `json:"my_review,omitempty"`
	Scores   *workflow.ScoreSummary `json:"scores,omitempty"`
}

// ReviewerDemand is a paper that still has open review slots.
type ReviewerDemand struct {
	Paper     models.Paper `json:"paper"`
	Assigned  int          `json:"assigned"`
	Completed int          `json:"completed"`
	Capacity  int          `json:"reviews_per_paper"`
	Missing   int          `json:"missing"`
}

type PaperService interface {
	SubmitPaper(ctx context.Context, actor workflow.Actor, submission PaperSubmission, upload *Upload) (*models.Paper, error)
	SetPaperStatus(ctx context.Context, actor workflow.Actor, paperID uuid.UUID, status models.PaperStatus, reason string) (*models.Paper, error)
	BrowsePapers(ctx context.Context, actor workflow.Actor, filter BrowseFilter) ([]models.Paper, error)
	GetPaperDetail(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (*PaperDetail, error)
	GetStatusHistory(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) ([]models.PaperStatusChange, error)
	PapersNeedingReviewers(ctx context.Context, actor workflow.Actor) ([]ReviewerDemand, error)
	OpenManuscript(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (io.ReadCloser, string, error)
}

type DefaultPaperService struct {
	engine
	files     FileStorage
	inspector *manuscript.Inspector
}

func NewPaperService(store Store, files FileStorage, inspector *manuscript.Inspector, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *DefaultPaperService {
	if inspector == nil {
		inspector = manuscript.NewInspector(0)
	}
	return &DefaultPaperService{
		engine:    newEngine(store, notifier, m, log),
		files:     files,
		inspector: inspector,
	}
}

func validateSubmission(sub *PaperSubmission) error {
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Abstract = strings.TrimSpace(sub.Abstract)
	sub.Keywords = strings.TrimSpace(sub.Keywords)

	if n := utf8.RuneCountInString(sub.Title); n < minTitleLength || n > maxTitleLength {
		return apperrors.New400Error(fmt.Sprintf("Title must be between %d and %d characters", minTitleLength, maxTitleLength))
	}
	if n := utf8.RuneCountInString(sub.Abstract); n < minAbstractLength || n > maxAbstractLength {
		return apperrors.New400Error(fmt.Sprintf("Abstract must be between %d and %d characters", minAbstractLength, maxAbstractLength))
	}
	if utf8.RuneCountInString(sub.Keywords) > maxKeywordsLength {
		return apperrors.New400Error(fmt.Sprintf("Keywords must be at most %d characters", maxKeywordsLength))
	}
	if sub.ConferenceID == uuid.Nil {
		return apperrors.New400Error("Conference is required")
	}
	return nil
}

func manuscriptError(err error) error {
	switch {
	case errors.Is(err, manuscript.ErrUnsupportedType):
		return apperrors.New400Error("Only PDF, DOC and DOCX files are allowed")
	case errors.Is(err, manuscript.ErrTooLarge):
		return apperrors.New400Error("File exceeds the maximum upload size")
	case errors.Is(err, manuscript.ErrEmpty):
		return apperrors.New400Error("Uploaded file is empty")
	case errors.Is(err, manuscript.ErrInvalidPDF):
		return apperrors.New400Error("Uploaded PDF could not be read")
	}
	return apperrors.New500Error(err)
}

func (s *DefaultPaperService) SubmitPaper(ctx context.Context, actor workflow.Actor, submission PaperSubmission, upload *Upload) (*models.Paper, error) {
	if err := workflow.Authorize(actor, models.RoleAuthor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateSubmission(&submission); err != nil {
		return nil, err
	}

	conference, err := s.store.GetConference(ctx, submission.ConferenceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.New400Error("Conference does not exist")
		}
		return nil, apperrors.New500Error(err)
	}

	var (
		fileKey string
		info    *manuscript.Info
	)
	if upload != nil && len(upload.Data) > 0 {
		if s.files == nil {
			return nil, apperrors.New500Error(errors.New("file storage is not configured"))
		}
		info, err = s.inspector.Inspect(upload.Filename, upload.Data)
		if err != nil {
			return nil, manuscriptError(err)
		}
		fileKey = manuscript.StorageKey(conference.Name, upload.Filename, s.now())
		if err := s.files.Save(ctx, fileKey, bytes.NewReader(upload.Data)); err != nil {
			return nil, apperrors.New500Error(fmt.Errorf("saving manuscript: %w", err))
		}
	}

	paper := &models.Paper{
		Title:         submission.Title,
		Abstract:      submission.Abstract,
		Keywords:      submission.Keywords,
		Status:        models.PaperStatusSubmitted,
		SubmittedAt:   s.now(),
		UpdatedAt:     s.now(),
		SubmittedByID: actor.ID,
		ConferenceID:  conference.ID,
	}
	if fileKey != "" {
		paper.FilePath = &fileKey
		paper.PageCount = info.Pages
	}

	err = s.store.RunInTx(ctx, func(tx StoreTx) error {
		authorIDs := uniqueIDs(append([]uuid.UUID{actor.ID}, submission.CoAuthorIDs...))
		authors, err := tx.ListUsersByID(ctx, authorIDs)
		if err != nil {
			return storeError(err, "Author not found")
		}
		if len(authors) != len(authorIDs) {
			return apperrors.New400Error("One or more co-authors do not exist")
		}
		for _, a := range authors {
			if !a.IsActive {
				return apperrors.New400Error(fmt.Sprintf("Co-author %s is deactivated", a.Email))
			}
		}
		categoryIDs := uniqueIDs(submission.CategoryIDs)
		categories, err := tx.ListCategoriesByID(ctx, categoryIDs)
		if err != nil {
			return storeError(err, "Category not found")
		}
		if len(categories) != len(categoryIDs) {
			return apperrors.New400Error("One or more categories do not exist")
		}

		paper.Authors = authors
		paper.Categories = categories
		if err := tx.CreatePaper(ctx, paper); err != nil {
			return storeError(err, "Paper not found")
		}
		return nil
	})
	if err != nil {
		if fileKey != "" {
			if delErr := s.files.Delete(context.WithoutCancel(ctx), fileKey); delErr != nil {
				s.log.Warn().Err(delErr).Str("key", fileKey).Msg("Failed to remove orphaned manuscript")
			}
		}
		return nil, err
	}
	paper.Conference = conference

	s.log.Info().
		Str("paperID", paper.ID.String()).
		Str("conferenceID", conference.ID.String()).
		Bool("manuscript", fileKey != "").
		Msg("Paper submitted")
	return paper, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SetPaperStatus is the administrative override. It is the only way into a
// decision state.
func (s *DefaultPaperService) SetPaperStatus(ctx context.Context, actor workflow.Actor, paperID uuid.UUID, status models.PaperStatus, reason string) (*models.Paper, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.New400Error(fmt.Sprintf("Unknown paper status %q", status))
	}

	var events []Event
	err := s.store.RunInTx(ctx, func(tx StoreTx) error {
		paper, err := tx.LockPaper(ctx, paperID)
		if err != nil {
			return storeError(err, "Paper not found")
		}
		if paper.Status == status {
			return nil
		}
		changedBy := actor.ID
		change := &models.PaperStatusChange{
			PaperID:     paper.ID,
			OldStatus:   paper.Status,
			NewStatus:   status,
			ChangedByID: &changedBy,
			Reason:      strings.TrimSpace(reason),
			CreatedAt:   s.now(),
		}
		if err := tx.RecordStatusChange(ctx, change); err != nil {
			return storeError(err, "Paper not found")
		}
		paper.Status = status
		events = append(events, statusChangedEvent(paper, change))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		s.log.Info().
			Str("paperID", paperID.String()).
			Str("from", string(events[0].OldStatus)).
			Str("to", string(status)).
			Str("adminID", actor.ID.String()).
			Msg("Paper status overridden")
	}
	s.publish(ctx, transitionManual, events)

	paper, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	return paper, nil
}

func (s *DefaultPaperService) BrowsePapers(ctx context.Context, actor workflow.Actor, filter BrowseFilter) ([]models.Paper, error) {
	if err := workflow.Authorize(actor, models.RoleAuthor, models.RoleReviewer, models.RoleAdmin); err != nil {
		return nil, err
	}
	pf := PaperFilter{
		ConferenceID: filter.ConferenceID,
		CategoryID:   filter.CategoryID,
		Query:        strings.TrimSpace(filter.Query),
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, apperrors.New400Error(fmt.Sprintf("Unknown paper status %q", *filter.Status))
		}
		pf.Statuses = []models.PaperStatus{*filter.Status}
	}
	if actor.Role != models.RoleAdmin {
		id := actor.ID
		pf.VisibleTo = &id
	}

	papers, err := s.store.ListPapers(ctx, pf)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	return papers, nil
}

func (s *DefaultPaperService) GetPaperDetail(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (*PaperDetail, error) {
	view, err := loadPaperView(ctx, s.store, paperID)
	if err != nil {
		return nil, err
	}
	access := view.decide(actor)
	if !access.CanView {
		return nil, apperrors.NewForbiddenError("You may not view this paper")
	}

	detail := &PaperDetail{Paper: view.paper, Access: access, Reviews: []models.Review{}}
	admin := workflow.CanSeeConfidentialComments(actor)
	for i := range view.reviews {
		r := view.reviews[i]
		if r.ReviewerID == actor.ID {
			own := r
			detail.MyReview = &own
		}
		if !access.CanViewReviews || !r.IsCompleted {
			continue
		}
		if !admin {
			// Authors read reviews blind.
			r.ConfidentialComments = ""
			r.Reviewer = nil
			r.ReviewerID = uuid.Nil
		}
		detail.Reviews = append(detail.Reviews, r)
	}
	if access.CanViewReviews {
		summary := workflow.Aggregate(view.reviews)
		detail.Scores = &summary
	}
	return detail, nil
}

func (s *DefaultPaperService) GetStatusHistory(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) ([]models.PaperStatusChange, error) {
	view, err := loadPaperView(ctx, s.store, paperID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanView(actor, view.access) {
		return nil, apperrors.NewForbiddenError("You may not view this paper")
	}
	history, err := s.store.ListStatusHistory(ctx, paperID)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	return history, nil
}

func (s *DefaultPaperService) PapersNeedingReviewers(ctx context.Context, actor workflow.Actor) ([]ReviewerDemand, error) {
	if err := workflow.Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	papers, err := s.store.ListPapers(ctx, PaperFilter{
		Statuses: []models.PaperStatus{models.PaperStatusSubmitted, models.PaperStatusUnderReview},
	})
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}
	ids := make([]uuid.UUID, 0, len(papers))
	for _, p := range papers {
		ids = append(ids, p.ID)
	}
	counts, err := s.store.ReviewCounts(ctx, ids)
	if err != nil {
		return nil, storeError(err, "Paper not found")
	}

	demand := make([]ReviewerDemand, 0)
	for _, p := range papers {
		c := counts[p.ID]
		capacity := p.Conference.Capacity()
		if c.Assigned >= capacity {
			continue
		}
		demand = append(demand, ReviewerDemand{
			Paper:     p,
			Assigned:  c.Assigned,
			Completed: c.Completed,
			Capacity:  capacity,
			Missing:   capacity - c.Assigned,
		})
	}
	return demand, nil
}

// OpenManuscript returns the stored file and a download name. The caller
// closes the reader.
func (s *DefaultPaperService) OpenManuscript(ctx context.Context, actor workflow.Actor, paperID uuid.UUID) (io.ReadCloser, string, error) {
	view, err := loadPaperView(ctx, s.store, paperID)
	if err != nil {
		return nil, "", err
	}
	if !workflow.CanDownload(actor, view.access) {
		return nil, "", apperrors.NewForbiddenError("You may not download this paper")
	}
	if view.paper.FilePath == nil || *view.paper.FilePath == "" || s.files == nil {
		return nil, "", apperrors.New404Error("Paper has no manuscript")
	}
	key := *view.paper.FilePath
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		return nil, "", storeError(err, "Manuscript file is missing")
	}
	return rc, path.Base(key), nil
}
