package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConferenceStatus string

const (
	ConferenceStatusUpcoming ConferenceStatus = "UPCOMING"
	ConferenceStatusActive   ConferenceStatus = "ACTIVE"
	ConferenceStatusClosed   ConferenceStatus = "CLOSED"
)

func (s ConferenceStatus) Valid() bool {
	switch s {
	case ConferenceStatusUpcoming, ConferenceStatusActive, ConferenceStatusClosed:
		return true
	}
	return false
}

// DefaultReviewsPerPaper is the review capacity used when a conference does
// not configure one.
const DefaultReviewsPerPaper = 3

type Conference struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	Name               string           `gorm:"type:varchar(200);not null" json:"name"`
	Year               int              `gorm:"not null" json:"year"`
	SubmissionDeadline time.Time        `gorm:"not null" json:"submission_deadline"`
	ReviewDeadline     *time.Time       `json:"review_deadline,omitempty"`
	NotificationDate   *time.Time       `json:"notification_date,omitempty"`
	Status             ConferenceStatus `gorm:"type:varchar(16);not null;default:UPCOMING" json:"status"`
	Description        string           `gorm:"type:text" json:"description"`
	Website            string           `gorm:"type:varchar(500)" json:"website"`
	ReviewsPerPaper    int              `gorm:"not null;default:3" json:"reviews_per_paper"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (c *Conference) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Capacity returns the number of completed reviews a paper needs.
func (c *Conference) Capacity() int {
	if c == nil || c.ReviewsPerPaper < 1 {
		return DefaultReviewsPerPaper
	}
	return c.ReviewsPerPaper
}

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"type:varchar(100);unique;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"type:varchar(7);default:'#007bff'" json:"color"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
