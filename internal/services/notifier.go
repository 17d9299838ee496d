package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/utils/broker"
)

type EventType string

const (
	EventReviewAssigned     EventType = "review.assigned"
	EventReviewCompleted    EventType = "review.completed"
	EventPaperStatusChanged EventType = "paper.status_changed"
)

// EventsTopic is the broker topic workflow events are published on.
const EventsTopic = "workflow.events"

// Event describes a committed workflow change. Recipients are the email
// addresses interested in it and never leave the process.
type Event struct {
	Type       EventType          `json:"type"`
	PaperID    uuid.UUID          `json:"paper_id"`
	PaperTitle string             `json:"paper_title"`
	ReviewID   uuid.UUID          `json:"review_id"`
	ReviewerID uuid.UUID          `json:"reviewer_id"`
	OldStatus  models.PaperStatus `json:"old_status,omitempty"`
	NewStatus  models.PaperStatus `json:"new_status,omitempty"`
	At         time.Time          `json:"at"`
	Recipients []string           `json:"-"`
}

// Notifier receives events after the transaction that produced them has
// committed. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, events ...Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...Event) {}

// MultiNotifier fans events out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, events ...Event) {
	for _, n := range m {
		n.Notify(ctx, events...)
	}
}

// BrokerNotifier publishes events on the in-process broker, where the
// websocket feed picks them up.
type BrokerNotifier struct {
	broker *broker.Broker
	log    zerolog.Logger
}

func NewBrokerNotifier(b *broker.Broker, log zerolog.Logger) *BrokerNotifier {
	return &BrokerNotifier{broker: b, log: log}
}

func (n *BrokerNotifier) Notify(_ context.Context, events ...Event) {
	for _, e := range events {
		delivered := n.broker.Publish(EventsTopic, e)
		n.log.Debug().Str("event", string(e.Type)).Int("delivered", delivered).Msg("Published workflow event")
	}
}

// MailSender is satisfied by *mail.Dialer.
type MailSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPConfig configures the email notifier.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

// NewSMTPDialer builds a dialer that insists on STARTTLS.
func NewSMTPDialer(cfg SMTPConfig) *mail.Dialer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return d
}

// MailNotifier turns events into emails and sends them from a background
// loop. Notify only enqueues; when the queue is full the email is dropped.
type MailNotifier struct {
	sender MailSender
	from   string
	queue  chan *mail.Message
	log    zerolog.Logger
}

func NewMailNotifier(sender MailSender, from string, queueSize int, log zerolog.Logger) *MailNotifier {
	if queueSize < 1 {
		queueSize = 64
	}
	return &MailNotifier{
		sender: sender,
		from:   from,
		queue:  make(chan *mail.Message, queueSize),
		log:    log,
	}
}

func (n *MailNotifier) Notify(_ context.Context, events ...Event) {
	for _, e := range events {
		msg := n.compose(e)
		if msg == nil {
			continue
		}
		select {
		case n.queue <- msg:
		default:
			n.log.Warn().Str("event", string(e.Type)).Str("paperID", e.PaperID.String()).Msg("Mail queue full, dropping notification")
		}
	}
}

// Run sends queued emails until ctx is cancelled.
func (n *MailNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-n.queue:
			if err := n.sender.DialAndSend(msg); err != nil {
				n.log.Error().Err(err).Strs("to", msg.GetHeader("To")).Msg("Failed to send notification email")
			}
		}
	}
}

func (n *MailNotifier) compose(e Event) *mail.Message {
	if len(e.Recipients) == 0 {
		return nil
	}

	var subject, body string
	switch e.Type {
	case EventReviewAssigned:
		subject = fmt.Sprintf("Review assignment: %s", e.PaperTitle)
		body = fmt.Sprintf("You have been assigned to review %q.\nReview id: %s\n", e.PaperTitle, e.ReviewID)
	case EventPaperStatusChanged:
		subject = fmt.Sprintf("Paper status update: %s", e.PaperTitle)
		body = fmt.Sprintf("The status of %q changed from %s to %s.\n",
			e.PaperTitle, humanStatus(e.OldStatus), humanStatus(e.NewStatus))
	default:
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", e.Recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

func humanStatus(s models.PaperStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}
