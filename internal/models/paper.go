package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaperStatus is the lifecycle state of a submitted paper.
type PaperStatus string

const (
	PaperStatusSubmitted        PaperStatus = "SUBMITTED"
	PaperStatusUnderReview      PaperStatus = "UNDER_REVIEW"
	PaperStatusReviewed         PaperStatus = "REVIEWED"
	PaperStatusAccepted         PaperStatus = "ACCEPTED"
	PaperStatusRejected         PaperStatus = "REJECTED"
	PaperStatusRevisionRequired PaperStatus = "REVISION_REQUIRED"
)

// AllPaperStatuses lists every status in lifecycle order.
var AllPaperStatuses = []PaperStatus{
	PaperStatusSubmitted,
	PaperStatusUnderReview,
	PaperStatusReviewed,
	PaperStatusAccepted,
	PaperStatusRejected,
	PaperStatusRevisionRequired,
}

func (s PaperStatus) Valid() bool {
	for _, known := range AllPaperStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsDecision reports whether s is one of the administrative decision states.
// The automatic review progression never moves a paper out of these.
func (s PaperStatus) IsDecision() bool {
	switch s {
	case PaperStatusAccepted, PaperStatusRejected, PaperStatusRevisionRequired:
		return true
	}
	return false
}

type Paper struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	Title         string      `gorm:"type:varchar(500);not null" json:"title"`
	Abstract      string      `gorm:"type:text;not null" json:"abstract"`
	Keywords      string      `gorm:"type:varchar(500)" json:"keywords"`
	Status        PaperStatus `gorm:"type:varchar(32);not null;default:SUBMITTED;index" json:"status"`
	SubmittedAt   time.Time   `gorm:"not null" json:"submitted_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	SubmittedByID uuid.UUID   `gorm:"type:uuid;not null" json:"submitted_by_id"`
	ConferenceID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"conference_id"`
	FilePath      *string     `gorm:"type:varchar(500)" json:"file_path,omitempty"`
	PageCount     int         `json:"page_count,omitempty"`

	Conference *Conference `gorm:"foreignKey:ConferenceID" json:"conference,omitempty"`
	Authors    []User      `gorm:"many2many:paper_authors;" json:"authors,omitempty"`
	Categories []Category  `gorm:"many2many:paper_categories;" json:"categories,omitempty"`
}

func (p *Paper) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AuthorIDs returns the ids of the paper's author set.
func (p *Paper) AuthorIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Authors))
	for _, a := range p.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

// HasAuthor reports whether userID is in the paper's author set.
func (p *Paper) HasAuthor(userID uuid.UUID) bool {
	for _, a := range p.Authors {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// PaperStatusChange is an audit row written for every status transition.
type PaperStatusChange struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	PaperID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"paper_id"`
	OldStatus   PaperStatus `gorm:"type:varchar(32);not null" json:"old_status"`
	NewStatus   PaperStatus `gorm:"type:varchar(32);not null" json:"new_status"`
	ChangedByID *uuid.UUID  `gorm:"type:uuid" json:"changed_by_id,omitempty"`
	Reason      string      `json:"reason"`
	CreatedAt   time.Time   `json:"created_at"`
}
