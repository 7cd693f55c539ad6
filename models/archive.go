package models

import (
	"time"
)

// FinalRanking is one row of the frozen leaderboard stored in the archive.
type FinalRanking struct {
	Rank     int     `json:"rank"`
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name,omitempty"`
	Score    float64 `json:"score"`
}

// SeasonStats is the derived stats block of a finished season.
// CompletionRate is active/total participants, defined as 0 when the
// season had nobody in it.
type SeasonStats struct {
	TotalParticipants  int     `json:"total_participants"`
	ActiveParticipants int     `json:"active_participants"`
	CompletionRate     float64 `json:"completion_rate"`
	AverageScore       float64 `json:"average_score"`
	TopScore           float64 `json:"top_score"`
}

// SeasonArchive is the immutable terminal snapshot of a completed
// competition. Exactly one row per season; the unique index on SeasonID is
// what makes finalization at-most-once under crash-and-retry.
type SeasonArchive struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	SeasonID   string          `json:"season_id" gorm:"uniqueIndex;not null"`
	SeasonName string          `json:"season_name" gorm:"not null"`
	SeasonType CompetitionType `json:"season_type" gorm:"type:varchar(16)"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	FinalRankings      []FinalRanking `json:"final_rankings" gorm:"serializer:json"`
	ParticipantCount   int            `json:"participant_count"`
	RewardsDistributed int            `json:"rewards_distributed"`
	SeasonStats        SeasonStats    `json:"season_stats" gorm:"serializer:json"`

	ArchivedAt time.Time `json:"archived_at" gorm:"index"`
}
