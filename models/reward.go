package models

import (
	"time"
)

// RewardDistribution is the append-only ledger of granted rewards. A user
// can hold several rows from one season (a placement tier plus the
// participation reward is the common case).
type RewardDistribution struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;index"`
	SourceID string `json:"source_id" gorm:"not null;index"` // competition id
	Reason   string `json:"reason"`

	RewardName  string     `json:"reward_name" gorm:"not null"`
	RewardType  RewardType `json:"reward_type" gorm:"type:varchar(16);not null"`
	RewardValue int64      `json:"reward_value" gorm:"default:0"`

	DistributedAt time.Time `json:"distributed_at" gorm:"index"`
}

// CollectibleItem is an inventory entry created when a collectible reward
// (badge, trophy, medal, crown) is granted.
type CollectibleItem struct {
	ID       string     `json:"id" gorm:"primaryKey"`
	UserID   string     `json:"user_id" gorm:"not null;index"`
	Name     string     `json:"name" gorm:"not null"`
	Type     RewardType `json:"type" gorm:"type:varchar(16);not null"`
	SourceID string     `json:"source_id" gorm:"index"` // competition the item came from
	Reason   string     `json:"reason"`

	AwardedAt time.Time `json:"awarded_at" gorm:"autoCreateTime"`
}
