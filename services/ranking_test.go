package services

import (
	"testing"
	"time"

	"season-competition-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedComp(rewards models.RewardsSpec) *models.Competition {
	return &models.Competition{
		ID:          "comp-1",
		Name:        "weekly-season-2026-01-12",
		DisplayName: "Weekly Season Jan 12, 2026",
		Rewards:     rewards,
	}
}

func participant(id, userID string, score float64, active bool, enrolled time.Time) models.Participant {
	return models.Participant{
		ID:            id,
		CompetitionID: "comp-1",
		UserID:        userID,
		UserName:      "player-" + userID,
		TotalScore:    score,
		IsActive:      active,
		EnrolledAt:    enrolled,
	}
}

func TestComputeFinalResultRanksByScore(t *testing.T) {
	enrolled := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	result := ComputeFinalResult(rankedComp(models.RewardsSpec{}), []models.Participant{
		participant("p-a", "user-a", 50, true, enrolled),
		participant("p-b", "user-b", 90, true, enrolled),
		participant("p-c", "user-c", 10, true, enrolled),
	})

	require.Len(t, result.Rankings, 3)
	assert.Equal(t, "user-b", result.Rankings[0].UserID)
	assert.Equal(t, 1, result.Rankings[0].Rank)
	assert.Equal(t, "user-a", result.Rankings[1].UserID)
	assert.Equal(t, 2, result.Rankings[1].Rank)
	assert.Equal(t, "user-c", result.Rankings[2].UserID)
	assert.Equal(t, 3, result.Rankings[2].Rank)

	assert.Equal(t, 50.0, result.Stats.AverageScore)
	assert.Equal(t, 90.0, result.Stats.TopScore)
	assert.Equal(t, 3, result.Stats.TotalParticipants)
	assert.Equal(t, 3, result.Stats.ActiveParticipants)
	assert.Equal(t, 1.0, result.Stats.CompletionRate)
}

func TestComputeFinalResultTieBreak(t *testing.T) {
	early := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)

	// Same score: earlier enrollment wins; same enrollment: lower ID wins.
	result := ComputeFinalResult(rankedComp(models.RewardsSpec{}), []models.Participant{
		participant("p-z", "user-z", 75, true, late),
		participant("p-a", "user-a", 75, true, early),
		participant("p-m", "user-m", 75, true, late),
	})

	require.Len(t, result.Rankings, 3)
	assert.Equal(t, "user-a", result.Rankings[0].UserID)
	assert.Equal(t, "user-m", result.Rankings[1].UserID)
	assert.Equal(t, "user-z", result.Rankings[2].UserID)
}

func TestComputeFinalResultExcludesInactive(t *testing.T) {
	enrolled := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	result := ComputeFinalResult(rankedComp(models.RewardsSpec{}), []models.Participant{
		participant("p-a", "user-a", 50, true, enrolled),
		participant("p-b", "user-b", 999, false, enrolled),
	})

	require.Len(t, result.Rankings, 1)
	assert.Equal(t, "user-a", result.Rankings[0].UserID)
	assert.Equal(t, 2, result.Stats.TotalParticipants)
	assert.Equal(t, 1, result.Stats.ActiveParticipants)
	assert.Equal(t, 0.5, result.Stats.CompletionRate)
	assert.Equal(t, 50.0, result.Stats.TopScore)
}

func TestComputeFinalResultEmpty(t *testing.T) {
	result := ComputeFinalResult(rankedComp(basicRewards()), nil)
	assert.Empty(t, result.Rankings)
	assert.Empty(t, result.Grants)
	assert.Equal(t, 0.0, result.Stats.CompletionRate)
	assert.Equal(t, 0.0, result.Stats.TopScore)
	assert.Equal(t, 0.0, result.Stats.AverageScore)
}

func TestResolveGrantsTierRangeClipped(t *testing.T) {
	enrolled := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	rewards := models.RewardsSpec{
		Tiers: []models.RewardTier{
			{Place: models.PlaceRange(4, 10), Reward: models.RewardDescriptor{Name: "Top10Badge", Type: models.RewardTypeBadge, Value: 100}},
		},
	}

	var parts []models.Participant
	scores := []float64{60, 50, 40, 30, 20, 10}
	for i, score := range scores {
		parts = append(parts, participant(
			"p-"+string(rune('a'+i)), "user-"+string(rune('a'+i)), score, true, enrolled))
	}

	result := ComputeFinalResult(rankedComp(rewards), parts)

	// Only ranks 4-6 exist; ranks 7-10 have nobody and produce no grants.
	require.Len(t, result.Grants, 3)
	granted := map[string]bool{}
	for _, g := range result.Grants {
		assert.Equal(t, "Top10Badge", g.Reward.Name)
		granted[g.UserID] = true
	}
	assert.True(t, granted["user-d"])
	assert.True(t, granted["user-e"])
	assert.True(t, granted["user-f"])
}

func TestResolveGrantsTierPlusParticipation(t *testing.T) {
	enrolled := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	result := ComputeFinalResult(rankedComp(basicRewards()), []models.Participant{
		participant("p-a", "user-a", 90, true, enrolled),
		participant("p-b", "user-b", 50, true, enrolled),
	})

	// Winner: trophy + participation. Runner-up: medal + participation.
	require.Len(t, result.Grants, 4)

	byUser := map[string][]string{}
	for _, g := range result.Grants {
		byUser[g.UserID] = append(byUser[g.UserID], g.Reward.Name)
	}
	assert.ElementsMatch(t, []string{"Champion Trophy", "Participant"}, byUser["user-a"])
	assert.ElementsMatch(t, []string{"Podium Medal", "Participant"}, byUser["user-b"])
}
