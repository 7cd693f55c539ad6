package services

import (
	"fmt"
	"math"
	"sort"

	"season-competition-system/models"
)

// GrantRequest is one resolved reward grant waiting to be applied: a
// concrete user, a concrete reward, and a human-readable reason.
type GrantRequest struct {
	UserID   string
	UserName string
	Reward   models.RewardDescriptor
	Reason   string
}

// RankedParticipant pairs a participant with the final rank assigned to it.
type RankedParticipant struct {
	Participant models.Participant
	FinalRank   int
}

// FinalResult is the full output of finalizing one season: the frozen
// leaderboard, the resolved grants and the derived stats. Computation only;
// nothing here touches the store.
type FinalResult struct {
	Ranked   []RankedParticipant
	Rankings []models.FinalRanking
	Grants   []GrantRequest
	Stats    models.SeasonStats
}

// ComputeFinalResult computes final standings and resolves every reward
// grant for a competition. Only active participants are ranked; ranks are
// 1-based. Ties on score break by earlier enrollment, then by participant
// ID, so the outcome never depends on store ordering.
func ComputeFinalResult(comp *models.Competition, participants []models.Participant) FinalResult {
	active := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.IsActive {
			active = append(active, p)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].TotalScore != active[j].TotalScore {
			return active[i].TotalScore > active[j].TotalScore
		}
		if !active[i].EnrolledAt.Equal(active[j].EnrolledAt) {
			return active[i].EnrolledAt.Before(active[j].EnrolledAt)
		}
		return active[i].ID < active[j].ID
	})

	result := FinalResult{
		Ranked:   make([]RankedParticipant, 0, len(active)),
		Rankings: make([]models.FinalRanking, 0, len(active)),
	}

	var totalScore, topScore float64
	for i, p := range active {
		rank := i + 1
		result.Ranked = append(result.Ranked, RankedParticipant{Participant: p, FinalRank: rank})
		result.Rankings = append(result.Rankings, models.FinalRanking{
			Rank:     rank,
			UserID:   p.UserID,
			UserName: p.UserName,
			Score:    p.TotalScore,
		})
		totalScore += p.TotalScore
		if p.TotalScore > topScore {
			topScore = p.TotalScore
		}
	}

	average := 0.0
	if len(active) > 0 {
		average = roundTo2(totalScore / float64(len(active)))
	}
	completionRate := 0.0
	if len(participants) > 0 {
		completionRate = roundTo2(float64(len(active)) / float64(len(participants)))
	}
	result.Stats = models.SeasonStats{
		TotalParticipants:  len(participants),
		ActiveParticipants: len(active),
		CompletionRate:     completionRate,
		AverageScore:       average,
		TopScore:           topScore,
	}

	result.Grants = resolveGrants(comp, result.Ranked)
	return result
}

// resolveGrants expands each configured tier into concrete target ranks and
// matches them against the final standings. Ranks with no participant are
// skipped. The participation reward, when configured, goes to every active
// participant on top of any tier grant.
func resolveGrants(comp *models.Competition, ranked []RankedParticipant) []GrantRequest {
	byRank := make(map[int]RankedParticipant, len(ranked))
	for _, rp := range ranked {
		byRank[rp.FinalRank] = rp
	}

	var grants []GrantRequest
	for _, tier := range comp.Rewards.Tiers {
		for _, rank := range tier.Place.Ranks() {
			rp, ok := byRank[rank]
			if !ok {
				continue
			}
			grants = append(grants, GrantRequest{
				UserID:   rp.Participant.UserID,
				UserName: rp.Participant.UserName,
				Reward:   tier.Reward,
				Reason:   fmt.Sprintf("Placed #%d in %s", rank, comp.DisplayName),
			})
		}
	}

	if comp.Rewards.Participation != nil {
		for _, rp := range ranked {
			grants = append(grants, GrantRequest{
				UserID:   rp.Participant.UserID,
				UserName: rp.Participant.UserName,
				Reward:   *comp.Rewards.Participation,
				Reason:   fmt.Sprintf("Participated in %s", comp.DisplayName),
			})
		}
	}
	return grants
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
