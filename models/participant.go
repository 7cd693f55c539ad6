package models

import (
	"time"
)

// Participant links one user to one competition. Never physically deleted;
// leaving flips IsActive off and re-joining flips it back on.
type Participant struct {
	ID            string `json:"id" gorm:"primaryKey"`
	CompetitionID string `json:"competition_id" gorm:"not null;index;uniqueIndex:idx_competition_user"`
	UserID        string `json:"user_id" gorm:"not null;index;uniqueIndex:idx_competition_user"`
	UserName      string `json:"user_name"` // denormalized from profile service

	TotalScore  float64 `json:"total_score" gorm:"default:0"`
	OverallRank *int    `json:"overall_rank,omitempty" gorm:"index"` // assigned at finalization

	CategoryScores map[string]float64 `json:"category_scores,omitempty" gorm:"serializer:json"`
	CategoryRanks  map[string]int     `json:"category_ranks,omitempty" gorm:"serializer:json"`

	IsActive   bool      `json:"is_active" gorm:"default:true;index"`
	EnrolledAt time.Time `json:"enrolled_at"`

	Timestamps
}
