package services

import (
	"fmt"
	"math"
	"time"

	"season-competition-system/models"
)

// endingSoonWindow is how close to the end date a season must be before its
// phase flips from active to ending_soon.
const endingSoonWindow = 24 * time.Hour

// CalculatePhase derives the lifecycle phase of a competition from its
// stored dates and status at the given instant. Pure: the same inputs
// always produce the same phase. Precedence, first match wins:
//
//	archived:     status is cancelled (terminal, regardless of dates)
//	completed:    status is completed, or the end date has passed
//	registration: a registration window is configured and still open
//	pre_start:    the start date is still in the future
//	ending_soon:  24h or less remain before the end date
//	active:       otherwise
func CalculatePhase(c *models.Competition, now time.Time) models.Phase {
	if c.Status == models.StatusCancelled {
		return models.PhaseArchived
	}
	if c.Status == models.StatusCompleted || now.After(c.EndDate) {
		return models.PhaseCompleted
	}
	if c.RegistrationEndDate != nil && now.Before(*c.RegistrationEndDate) {
		return models.PhaseRegistration
	}
	if now.Before(c.StartDate) {
		return models.PhasePreStart
	}
	if remaining := c.EndDate.Sub(now); remaining > 0 && remaining <= endingSoonWindow {
		return models.PhaseEndingSoon
	}
	return models.PhaseActive
}

// CalculateProgress maps now onto a 0-100 percentage of the season's
// duration. Zero-duration seasons report 100 as soon as they start.
func CalculateProgress(c *models.Competition, now time.Time) int {
	// End-date check first: a zero-duration season is fully elapsed the
	// moment it starts.
	if !now.Before(c.EndDate) {
		return 100
	}
	if !now.After(c.StartDate) {
		return 0
	}
	total := c.EndDate.Sub(c.StartDate)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(c.StartDate)
	progress := int(math.Round(100 * float64(elapsed) / float64(total)))
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// FormatTimeRemaining renders the time left until the end date in the
// coarse "2d 4h" form the listing endpoints expose. Empty once the season
// is over.
func FormatTimeRemaining(c *models.Competition, now time.Time) string {
	remaining := c.EndDate.Sub(now)
	if remaining <= 0 {
		return ""
	}
	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	minutes := int(remaining.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Decorate fills the calculated (non-persisted) fields of a competition
// from a single shared instant.
func Decorate(c *models.Competition, now time.Time) {
	c.Phase = CalculatePhase(c, now)
	c.Progress = CalculateProgress(c, now)
	c.TimeRemaining = FormatTimeRemaining(c, now)
}
