package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"season-competition-system/models"
	"season-competition-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// How many upcoming windows to keep materialized per cadence.
const (
	weeklyLookahead    = 2
	monthlyLookahead   = 1
	quarterlyLookahead = 1
)

// Registration opens this long before the season starts. It always closes
// at the start date.
var registrationLead = map[models.CompetitionType]time.Duration{
	models.CompetitionWeekly:    3 * 24 * time.Hour,
	models.CompetitionMonthly:   7 * 24 * time.Hour,
	models.CompetitionQuarterly: 14 * 24 * time.Hour,
}

type AutoCreateService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewAutoCreateService(db *gorm.DB, clock clockwork.Clock) *AutoCreateService {
	return &AutoCreateService{DB: db, Clock: clock}
}

// seasonWindow is one candidate competition computed from a cadence and a
// window start.
type seasonWindow struct {
	Type  models.CompetitionType
	Start time.Time
	End   time.Time
}

// AutoCreate materializes the upcoming season windows that do not exist
// yet and returns how many were created. Safe to call any number of times
// and from concurrent callers: the canonical name derived from the window
// start is unique-indexed, and a duplicate-key insert is treated as
// "already exists", not as an error. A failure creating one window never
// aborts the rest.
func (s *AutoCreateService) AutoCreate(now time.Time) (int, error) {
	created := 0
	var failures []error

	for _, w := range upcomingWindows(now) {
		comp := buildSeason(w)

		var existing models.Competition
		err := s.DB.Select("id").Where("name = ?", comp.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			failures = append(failures, fmt.Errorf("lookup %s: %w", comp.Name, err))
			continue
		}

		if err := comp.Validate(); err != nil {
			failures = append(failures, err)
			continue
		}
		if err := s.DB.Create(comp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the race to a concurrent creator. Fine.
				log.Printf("[AutoCreate] %s already exists, skipping", comp.Name)
				continue
			}
			failures = append(failures, fmt.Errorf("create %s: %w", comp.Name, err))
			continue
		}
		created++
		utils.CompetitionsCreated.Inc()
		log.Printf("[AutoCreate] Created %s season %q (%s to %s)",
			comp.Type, comp.Name, comp.StartDate.Format(time.RFC3339), comp.EndDate.Format(time.RFC3339))
	}

	return created, errors.Join(failures...)
}

// upcomingWindows computes the candidate windows ahead of now: the next two
// week-aligned windows, the next month and the next quarter. All windows
// are UTC-midnight aligned.
func upcomingWindows(now time.Time) []seasonWindow {
	var windows []seasonWindow
	now = now.UTC()

	weekStart := nextMonday(now)
	for i := 0; i < weeklyLookahead; i++ {
		start := weekStart.AddDate(0, 0, 7*i)
		windows = append(windows, seasonWindow{
			Type:  models.CompetitionWeekly,
			Start: start,
			End:   start.AddDate(0, 0, 7),
		})
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	for i := 0; i < monthlyLookahead; i++ {
		start := monthStart.AddDate(0, i, 0)
		windows = append(windows, seasonWindow{
			Type:  models.CompetitionMonthly,
			Start: start,
			End:   start.AddDate(0, 1, 0),
		})
	}

	quarterStart := nextQuarterStart(now)
	for i := 0; i < quarterlyLookahead; i++ {
		start := quarterStart.AddDate(0, 3*i, 0)
		windows = append(windows, seasonWindow{
			Type:  models.CompetitionQuarterly,
			Start: start,
			End:   start.AddDate(0, 3, 0),
		})
	}

	return windows
}

// nextMonday returns the first UTC-midnight Monday strictly after now.
func nextMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

// nextQuarterStart returns the first day of the next calendar quarter.
func nextQuarterStart(now time.Time) time.Time {
	quarterMonth := ((int(now.Month())-1)/3)*3 + 1 // Jan, Apr, Jul, Oct
	start := time.Date(now.Year(), time.Month(quarterMonth), 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 3, 0)
}

var titleCaser = cases.Title(language.English)

// CanonicalSeasonName derives the unique, deterministic name of the window.
// The same cadence and window start always slug to the same name, which is
// what makes auto-creation idempotent.
func CanonicalSeasonName(t models.CompetitionType, start time.Time) string {
	return slug.Make(fmt.Sprintf("%s-season-%s", t, start.UTC().Format("2006-01-02")))
}

// buildSeason constructs the full competition record for one window,
// including the registration window and the cadence's reward and scoring
// template.
func buildSeason(w seasonWindow) *models.Competition {
	regStart := w.Start
	if lead, ok := registrationLead[w.Type]; ok {
		regStart = w.Start.Add(-lead)
	}
	regEnd := w.Start

	return &models.Competition{
		ID:                    uuid.NewString(),
		Name:                  CanonicalSeasonName(w.Type, w.Start),
		DisplayName:           fmt.Sprintf("%s Season %s", titleCaser.String(string(w.Type)), w.Start.UTC().Format("Jan 2, 2006")),
		Type:                  w.Type,
		Status:                models.StatusUpcoming,
		StartDate:             w.Start,
		EndDate:               w.End,
		RegistrationStartDate: &regStart,
		RegistrationEndDate:   &regEnd,
		MinParticipants:       2,
		MaxParticipants:       0,
		Categories:            []string{"matches", "challenges", "community"},
		Rewards:               rewardTemplate(w.Type),
		Scoring:               scoringTemplate(),
	}
}

func rewardTemplate(t models.CompetitionType) models.RewardsSpec {
	switch t {
	case models.CompetitionMonthly:
		return models.RewardsSpec{
			Tiers: []models.RewardTier{
				{Place: models.SinglePlace(1), Reward: models.RewardDescriptor{Name: "Monthly Crown", Type: models.RewardTypeCrown, Value: 2000}},
				{Place: models.PlaceRange(2, 3), Reward: models.RewardDescriptor{Name: "Monthly Podium Trophy", Type: models.RewardTypeTrophy, Value: 1000}},
				{Place: models.PlaceRange(4, 10), Reward: models.RewardDescriptor{Name: "Monthly Top 10 Badge", Type: models.RewardTypeBadge, Value: 300}},
			},
			Participation: &models.RewardDescriptor{Name: "Monthly Participant", Type: models.RewardTypePoints, Value: 100},
		}
	case models.CompetitionQuarterly:
		return models.RewardsSpec{
			Tiers: []models.RewardTier{
				{Place: models.SinglePlace(1), Reward: models.RewardDescriptor{Name: "Quarterly Champion Crown", Type: models.RewardTypeCrown, Value: 5000}},
				{Place: models.PlaceRange(2, 3), Reward: models.RewardDescriptor{Name: "Quarterly Podium Trophy", Type: models.RewardTypeTrophy, Value: 2500}},
				{Place: models.PlaceRange(4, 25), Reward: models.RewardDescriptor{Name: "Quarterly Elite Badge", Type: models.RewardTypeBadge, Value: 750}},
			},
			Participation: &models.RewardDescriptor{Name: "Quarterly Participant", Type: models.RewardTypePoints, Value: 250},
		}
	default: // weekly
		return models.RewardsSpec{
			Tiers: []models.RewardTier{
				{Place: models.SinglePlace(1), Reward: models.RewardDescriptor{Name: "Weekly Champion Trophy", Type: models.RewardTypeTrophy, Value: 500}},
				{Place: models.PlaceRange(2, 3), Reward: models.RewardDescriptor{Name: "Weekly Podium Medal", Type: models.RewardTypeMedal, Value: 250}},
			},
			Participation: &models.RewardDescriptor{Name: "Weekly Participant", Type: models.RewardTypePoints, Value: 50},
		}
	}
}

func scoringTemplate() models.ScoringRules {
	return models.ScoringRules{
		"matches":    {Weight: 1.0, MaxScore: 1000},
		"challenges": {Weight: 1.5, MaxScore: 500},
		"community":  {Weight: 0.5, MaxScore: 250},
	}
}
