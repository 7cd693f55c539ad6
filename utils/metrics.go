package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters, exposed at /metrics.
var (
	CompetitionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_competitions_created_total",
		Help: "Competitions materialized by the auto-creator.",
	})
	CompetitionsActivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_competitions_activated_total",
		Help: "Competitions flipped from upcoming to active.",
	})
	CompetitionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_competitions_completed_total",
		Help: "Competitions finalized and archived.",
	})
	RewardsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_rewards_granted_total",
		Help: "Reward distributions written.",
	})
	GrantFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_reward_grant_failures_total",
		Help: "Reward grants that failed and were skipped.",
	})
	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "season_notification_failures_total",
		Help: "Completion notifications that could not be dispatched.",
	})
)
