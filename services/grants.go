package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"season-competition-system/models"
	"season-competition-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Level curve: reaching level n+1 from n costs floor(BasePointsPerLevel * n^1.2).
const BasePointsPerLevel = 100

// RankThresholds: minimum level per progression rank.
var RankThresholds = map[int]int{
	1: 1,   // Bronze (start)
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

func pointsForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BasePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// GrantFailure records one grant that could not be applied.
type GrantFailure struct {
	UserID string `json:"user_id"`
	Reward string `json:"reward"`
	Error  string `json:"error"`
}

// GrantBatchResult reports how a batch of grants went. Failures never abort
// the batch; they are collected here.
type GrantBatchResult struct {
	Granted  int            `json:"granted"`
	Failures []GrantFailure `json:"failures,omitempty"`
}

// GrantService applies resolved grant requests to the store: a distribution
// ledger row per grant, an inventory item for collectibles, and a points
// upsert into the user's progression counter. Constructed on a transaction
// handle it joins the caller's transaction, so a rolled-back finalization
// takes its grants with it.
type GrantService struct {
	DB *gorm.DB
}

func NewGrantService(db *gorm.DB) *GrantService {
	return &GrantService{DB: db}
}

// ApplyGrants applies every grant in the batch. Each grant commits or rolls
// back as a unit, and one user's failure is isolated from the rest; the
// result reports per-grant outcomes.
func (s *GrantService) ApplyGrants(competitionID string, grants []GrantRequest, now time.Time) GrantBatchResult {
	var result GrantBatchResult
	for _, g := range grants {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return applyGrant(tx, competitionID, g, now)
		})
		if err != nil {
			log.Printf("[Grants] Failed to grant %q to %s: %v", g.Reward.Name, g.UserID, err)
			utils.GrantFailures.Inc()
			result.Failures = append(result.Failures, GrantFailure{
				UserID: g.UserID,
				Reward: g.Reward.Name,
				Error:  err.Error(),
			})
			continue
		}
		result.Granted++
		utils.RewardsGranted.Inc()
	}
	return result
}

// applyGrant performs the writes for one grant: the ledger row, the
// collectible inventory entry and the points upsert, all on the same
// transaction handle.
func applyGrant(tx *gorm.DB, competitionID string, g GrantRequest, now time.Time) error {
	if g.UserID == "" {
		return fmt.Errorf("grant for reward %q has no user id", g.Reward.Name)
	}

	dist := models.RewardDistribution{
		ID:            uuid.NewString(),
		UserID:        g.UserID,
		SourceID:      competitionID,
		Reason:        g.Reason,
		RewardName:    g.Reward.Name,
		RewardType:    g.Reward.Type,
		RewardValue:   g.Reward.Value,
		DistributedAt: now,
	}
	if err := tx.Create(&dist).Error; err != nil {
		return fmt.Errorf("distribution write: %w", err)
	}

	if g.Reward.Type.IsCollectible() {
		item := models.CollectibleItem{
			ID:       uuid.NewString(),
			UserID:   g.UserID,
			Name:     g.Reward.Name,
			Type:     g.Reward.Type,
			SourceID: competitionID,
			Reason:   g.Reason,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("inventory write: %w", err)
		}
	}

	if g.Reward.Value > 0 {
		if err := awardPoints(tx, g.UserID, g.Reward.Value, now); err != nil {
			return fmt.Errorf("points update: %w", err)
		}
	}

	return nil
}

// awardPoints adds to the user's cumulative points counter, creating the
// record with starting values if it does not exist, and recomputes level
// and rank.
func awardPoints(tx *gorm.DB, userID string, points int64, now time.Time) error {
	var prog models.UserProgress
	err := tx.Where("user_id = ?", userID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.UserProgress{
			ID:     uuid.NewString(),
			UserID: userID,
			Level:  1,
			Rank:   1,
		}
		if err := tx.Create(&prog).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	oldRank := prog.Rank
	prog.TotalPoints += points

	for prog.TotalPoints >= int64(BasePointsPerLevel)*int64(prog.Level)+pointsForNextLevel(prog.Level) {
		prog.Level++
		prog.LastLevelUpAt = &now
	}

	if newRank := determineRank(prog.Level); newRank > oldRank {
		prog.Rank = newRank
		prog.LastRankUpAt = &now
	}

	return tx.Save(&prog).Error
}

// RecordSeasonOutcome bumps the per-user season counters after
// finalization. Best effort; counters are advisory.
func (s *GrantService) RecordSeasonOutcome(userID string, placed bool) {
	updates := map[string]interface{}{
		"total_seasons": gorm.Expr("total_seasons + 1"),
	}
	if placed {
		updates["seasons_placed"] = gorm.Expr("seasons_placed + 1")
	}
	if err := s.DB.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		log.Printf("[Grants] Season counter update failed for %s: %v", userID, err)
	}
}
