package services

import (
	"path/filepath"
	"testing"
	"time"

	"season-competition-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Competition{},
		&models.Participant{},
		&models.SeasonArchive{},
		&models.RewardDistribution{},
		&models.CollectibleItem{},
		&models.UserProgress{},
	))
	return db
}

func newArchiver(t *testing.T, db *gorm.DB, clock clockwork.Clock, dispatcher NotificationDispatcher) *ArchiveService {
	t.Helper()
	return NewArchiveService(db, clock, NewGrantService(db), dispatcher, nil)
}

// recordingDispatcher captures completion notices for assertions.
type recordingDispatcher struct {
	notices []CompletionNotice
}

func (r *recordingDispatcher) DispatchCompletion(n CompletionNotice) error {
	r.notices = append(r.notices, n)
	return nil
}

func seedCompetition(t *testing.T, db *gorm.DB, name string, status models.CompetitionStatus, start, end time.Time, rewards models.RewardsSpec) *models.Competition {
	t.Helper()
	comp := &models.Competition{
		ID:          uuid.NewString(),
		Name:        name,
		DisplayName: name,
		Type:        models.CompetitionWeekly,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
		Categories:  []string{"matches"},
		Rewards:     rewards,
		Scoring:     models.ScoringRules{"matches": {Weight: 1, MaxScore: 1000}},
	}
	require.NoError(t, db.Create(comp).Error)
	return comp
}

func seedParticipant(t *testing.T, db *gorm.DB, compID, userID string, score float64, active bool, enrolledAt time.Time) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:            uuid.NewString(),
		CompetitionID: compID,
		UserID:        userID,
		UserName:      "player-" + userID,
		TotalScore:    score,
		IsActive:      active,
		EnrolledAt:    enrolledAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func basicRewards() models.RewardsSpec {
	return models.RewardsSpec{
		Tiers: []models.RewardTier{
			{Place: models.SinglePlace(1), Reward: models.RewardDescriptor{Name: "Champion Trophy", Type: models.RewardTypeTrophy, Value: 500}},
			{Place: models.PlaceRange(2, 3), Reward: models.RewardDescriptor{Name: "Podium Medal", Type: models.RewardTypeMedal, Value: 250}},
		},
		Participation: &models.RewardDescriptor{Name: "Participant", Type: models.RewardTypePoints, Value: 50},
	}
}
