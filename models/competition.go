package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CompetitionType is the recurrence cadence of a season.
type CompetitionType string

const (
	CompetitionWeekly    CompetitionType = "weekly"
	CompetitionMonthly   CompetitionType = "monthly"
	CompetitionQuarterly CompetitionType = "quarterly"
	CompetitionYearly    CompetitionType = "yearly"
	CompetitionCustom    CompetitionType = "custom"
)

// CompetitionStatus is the persisted lifecycle status.
// upcoming → active → completed; cancelled is terminal and set by an
// external actor, never by the engine.
type CompetitionStatus string

const (
	StatusUpcoming  CompetitionStatus = "upcoming"
	StatusActive    CompetitionStatus = "active"
	StatusCompleted CompetitionStatus = "completed"
	StatusCancelled CompetitionStatus = "cancelled"
)

// Competition represents one time-boxed season with its embedded reward
// and scoring configuration. Name is the idempotency key for auto-creation
// and carries a unique index so concurrent creators can race safely.
type Competition struct {
	ID          string            `json:"id" gorm:"primaryKey"`
	Name        string            `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName string            `json:"display_name" gorm:"not null"`
	Type        CompetitionType   `json:"type" gorm:"type:varchar(16);not null;index"`
	Status      CompetitionStatus `json:"status" gorm:"type:varchar(16);default:'upcoming';index"`

	StartDate             time.Time  `json:"start_date" gorm:"not null;index"`
	EndDate               time.Time  `json:"end_date" gorm:"not null;index"`
	RegistrationStartDate *time.Time `json:"registration_start_date,omitempty"`
	RegistrationEndDate   *time.Time `json:"registration_end_date,omitempty"`

	MinParticipants int `json:"min_participants" gorm:"default:0"`
	MaxParticipants int `json:"max_participants" gorm:"default:0"` // 0 = unlimited

	Categories []string     `json:"categories" gorm:"serializer:json"`
	Rewards    RewardsSpec  `json:"rewards" gorm:"serializer:json"`
	Scoring    ScoringRules `json:"scoring_rules" gorm:"serializer:json"`

	Timestamps

	// Calculated fields (not stored in DB)
	Phase            Phase   `json:"phase,omitempty" gorm:"-"`
	Progress         int     `json:"progress" gorm:"-"`
	TimeRemaining    string  `json:"time_remaining,omitempty" gorm:"-"`
	ParticipantCount int64   `json:"participant_count" gorm:"-"`
	AverageScore     float64 `json:"average_score" gorm:"-"`
	TopScore         float64 `json:"top_score" gorm:"-"`
}

// Validate checks the temporal invariants at creation time so the embedded
// config never has to be re-checked during finalization.
func (c *Competition) Validate() error {
	if !c.StartDate.Before(c.EndDate) && !c.StartDate.Equal(c.EndDate) {
		return fmt.Errorf("competition %q: start_date must not be after end_date", c.Name)
	}
	if c.RegistrationStartDate != nil && c.RegistrationEndDate != nil {
		if c.RegistrationStartDate.After(*c.RegistrationEndDate) {
			return fmt.Errorf("competition %q: registration_start_date after registration_end_date", c.Name)
		}
	}
	if c.RegistrationEndDate != nil && c.RegistrationEndDate.After(c.StartDate) {
		return fmt.Errorf("competition %q: registration_end_date after start_date", c.Name)
	}
	return c.Rewards.Validate()
}

// Phase is the derived, non-persisted lifecycle label.
type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhasePreStart     Phase = "pre_start"
	PhaseActive       Phase = "active"
	PhaseEndingSoon   Phase = "ending_soon"
	PhaseCompleted    Phase = "completed"
	PhaseArchived     Phase = "archived"
)

// RewardType classifies a reward descriptor. Collectible types produce an
// inventory entry on grant; points feed the user's progression counter.
type RewardType string

const (
	RewardTypeBadge  RewardType = "badge"
	RewardTypeTrophy RewardType = "trophy"
	RewardTypeMedal  RewardType = "medal"
	RewardTypeCrown  RewardType = "crown"
	RewardTypePoints RewardType = "points"
	RewardTypeTitle  RewardType = "title"
)

// IsCollectible reports whether granting this type creates an inventory item.
func (t RewardType) IsCollectible() bool {
	switch t {
	case RewardTypeBadge, RewardTypeTrophy, RewardTypeMedal, RewardTypeCrown:
		return true
	}
	return false
}

// RewardDescriptor names a single reward. Value is the point worth carried
// alongside the collectible, if any.
type RewardDescriptor struct {
	Name  string     `json:"name"`
	Type  RewardType `json:"type"`
	Value int64      `json:"value"`
}

// RewardTier maps one placement (or an inclusive range of placements) to a reward.
type RewardTier struct {
	Place  Place            `json:"place"`
	Reward RewardDescriptor `json:"reward"`
}

// RewardsSpec is the embedded reward configuration of a competition:
// an ordered list of placement tiers plus one optional participation reward
// granted to every active participant.
type RewardsSpec struct {
	Tiers         []RewardTier      `json:"tiers"`
	Participation *RewardDescriptor `json:"participation,omitempty"`
}

func (r RewardsSpec) Validate() error {
	for i, tier := range r.Tiers {
		if tier.Place.Low < 1 {
			return fmt.Errorf("reward tier %d: place must be >= 1", i)
		}
		if tier.Place.High < tier.Place.Low {
			return fmt.Errorf("reward tier %d: place range [%d,%d] is inverted", i, tier.Place.Low, tier.Place.High)
		}
		if tier.Reward.Name == "" {
			return fmt.Errorf("reward tier %d: reward name is required", i)
		}
	}
	return nil
}

// Place is a placement target: a single rank or an inclusive [low, high] range.
// The wire form is either a scalar (3) or a two-element array ([4,10]).
type Place struct {
	Low  int `json:"-"`
	High int `json:"-"`
}

// SinglePlace targets exactly one rank.
func SinglePlace(rank int) Place { return Place{Low: rank, High: rank} }

// PlaceRange targets every rank in [low, high].
func PlaceRange(low, high int) Place { return Place{Low: low, High: high} }

// Ranks expands the place into the concrete list of target ranks.
func (p Place) Ranks() []int {
	ranks := make([]int, 0, p.High-p.Low+1)
	for r := p.Low; r <= p.High; r++ {
		ranks = append(ranks, r)
	}
	return ranks
}

func (p Place) MarshalJSON() ([]byte, error) {
	if p.Low == p.High {
		return json.Marshal(p.Low)
	}
	return json.Marshal([2]int{p.Low, p.High})
}

func (p *Place) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		p.Low, p.High = single, single
		return nil
	}
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("place must be a rank or a [low,high] pair: %w", err)
	}
	p.Low, p.High = pair[0], pair[1]
	return nil
}

// CategoryRule weights one scoring category and caps its score.
type CategoryRule struct {
	Weight   float64 `json:"weight"`
	MaxScore float64 `json:"max_score"`
}

// ScoringRules holds the per-category weights of a competition.
type ScoringRules map[string]CategoryRule
