package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/metrics"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/workflow"
)

const (
	transitionAutomatic = "automatic"
	transitionManual    = "manual"
)

// engine carries what every workflow service needs.
type engine struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func newEngine(store Store, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return engine{
		store:    store,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// storeError maps a store failure to a typed error. ErrNotFound becomes a 404
// carrying notFoundMsg; anything unexpected is a 500.
func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperrors.New404Error(notFoundMsg)
	}
	var customErr *apperrors.CustomError
	if errors.As(err, &customErr) {
		return err
	}
	return apperrors.New500Error(err)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "error"
}

// advance applies the automatic state machine to paper inside tx and records
// the transition when one fires.
func (e *engine) advance(ctx context.Context, tx StoreTx, paper *models.Paper, trigger workflow.Trigger, completed int, changedBy uuid.UUID) (*models.PaperStatusChange, error) {
	next, changed := workflow.NextStatus(paper.Status, trigger, workflow.Progress{
		CompletedReviews: completed,
		Capacity:         paper.Conference.Capacity(),
	})
	if !changed {
		return nil, nil
	}

	change := &models.PaperStatusChange{
		PaperID:     paper.ID,
		OldStatus:   paper.Status,
		NewStatus:   next,
		ChangedByID: &changedBy,
		Reason:      trigger.String(),
		CreatedAt:   e.now(),
	}
	if err := tx.RecordStatusChange(ctx, change); err != nil {
		return nil, storeError(err, "Paper not found")
	}
	paper.Status = next
	return change, nil
}

func authorEmails(paper *models.Paper) []string {
	emails := make([]string, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		if a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	return emails
}

func statusChangedEvent(paper *models.Paper, change *models.PaperStatusChange) Event {
	return Event{
		Type:       EventPaperStatusChanged,
		PaperID:    paper.ID,
		PaperTitle: paper.Title,
		OldStatus:  change.OldStatus,
		NewStatus:  change.NewStatus,
		At:         change.CreatedAt,
		Recipients: authorEmails(paper),
	}
}

// publish hands committed events to the notifier without tying them to the
// request's cancellation.
func (e *engine) publish(ctx context.Context, source string, events []Event) {
	for _, ev := range events {
		if ev.Type == EventPaperStatusChanged {
			e.metrics.IncrementTransition(source, string(ev.OldStatus), string(ev.NewStatus))
		}
	}
	if len(events) > 0 {
		e.notifier.Notify(context.WithoutCancel(ctx), events...)
	}
}
