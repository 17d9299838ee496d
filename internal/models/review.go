package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Recommendation string

const (
	RecommendationReject        Recommendation = "REJECT"
	RecommendationMajorRevision Recommendation = "MAJOR_REVISION"
	RecommendationMinorRevision Recommendation = "MINOR_REVISION"
	RecommendationAccept        Recommendation = "ACCEPT"
)

// AllRecommendations lists the recommendations from least to most favourable.
var AllRecommendations = []Recommendation{
	RecommendationReject,
	RecommendationMajorRevision,
	RecommendationMinorRevision,
	RecommendationAccept,
}

func (r Recommendation) Valid() bool {
	for _, known := range AllRecommendations {
		if r == known {
			return true
		}
	}
	return false
}

// Review binds one reviewer to one paper. Score fields stay nil until the
// review is completed; completion happens exactly once.
type Review struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	PaperID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_paper_reviewer" json:"paper_id"`
	ReviewerID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_paper_reviewer;index" json:"reviewer_id"`
	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TechnicalQuality *int            `json:"technical_quality,omitempty"`
	Novelty          *int            `json:"novelty,omitempty"`
	Clarity          *int            `json:"clarity,omitempty"`
	Significance     *int            `json:"significance,omitempty"`
	OverallScore     *int            `json:"overall_score,omitempty"`
	Recommendation   *Recommendation `gorm:"type:varchar(32)" json:"recommendation,omitempty"`

	Comments             string `gorm:"type:text" json:"comments,omitempty"`
	ConfidentialComments string `gorm:"type:text" json:"confidential_comments,omitempty"`

	Paper    *Paper `gorm:"foreignKey:PaperID" json:"paper,omitempty"`
	Reviewer *User  `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
