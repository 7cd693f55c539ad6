package services

import (
	"testing"
	"time"

	"season-competition-system/models"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)

func comp(status models.CompetitionStatus, start, end time.Time) *models.Competition {
	return &models.Competition{Status: status, StartDate: start, EndDate: end}
}

func TestCalculatePhasePrecedence(t *testing.T) {
	start := base
	end := base.AddDate(0, 0, 7)

	tests := []struct {
		name string
		comp *models.Competition
		now  time.Time
		want models.Phase
	}{
		{"ending soon at 23h before end", comp(models.StatusActive, start, end), end.Add(-23 * time.Hour), models.PhaseEndingSoon},
		{"active at 25h before end", comp(models.StatusActive, start, end), end.Add(-25 * time.Hour), models.PhaseActive},
		{"completed after end regardless of stored status", comp(models.StatusActive, start, end), end.Add(time.Minute), models.PhaseCompleted},
		{"completed status wins before end", comp(models.StatusCompleted, start, end), start.Add(time.Hour), models.PhaseCompleted},
		{"cancelled maps to archived even after end", comp(models.StatusCancelled, start, end), end.Add(time.Hour), models.PhaseArchived},
		{"pre start before start date", comp(models.StatusUpcoming, start, end), start.Add(-time.Hour), models.PhasePreStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePhase(tt.comp, tt.now))
		})
	}
}

func TestCalculatePhaseRegistrationWindow(t *testing.T) {
	start := base
	end := base.AddDate(0, 0, 7)
	regStart := start.AddDate(0, 0, -3)

	c := comp(models.StatusUpcoming, start, end)
	c.RegistrationStartDate = &regStart
	c.RegistrationEndDate = &start

	// Both "not yet open" and "currently open" report registration.
	assert.Equal(t, models.PhaseRegistration, CalculatePhase(c, regStart.Add(-24*time.Hour)))
	assert.Equal(t, models.PhaseRegistration, CalculatePhase(c, regStart.Add(time.Hour)))
	// At the registration close the window no longer applies.
	assert.Equal(t, models.PhaseActive, CalculatePhase(c, start))
}

func TestCalculateProgress(t *testing.T) {
	start := base
	end := base.AddDate(0, 0, 10)
	c := comp(models.StatusActive, start, end)

	assert.Equal(t, 0, CalculateProgress(c, start.Add(-time.Hour)))
	assert.Equal(t, 0, CalculateProgress(c, start))
	assert.Equal(t, 50, CalculateProgress(c, start.Add(5*24*time.Hour)))
	assert.Equal(t, 100, CalculateProgress(c, end))
	assert.Equal(t, 100, CalculateProgress(c, end.Add(time.Hour)))
}

func TestCalculateProgressMonotonic(t *testing.T) {
	start := base
	end := base.AddDate(0, 0, 7)
	c := comp(models.StatusActive, start, end)

	prev := -1
	for now := start.Add(-time.Hour); now.Before(end.Add(2 * time.Hour)); now = now.Add(30 * time.Minute) {
		p := CalculateProgress(c, now)
		assert.GreaterOrEqual(t, p, prev, "progress decreased at %s", now)
		assert.GreaterOrEqual(t, p, 0)
		assert.LessOrEqual(t, p, 100)
		prev = p
	}
}

func TestCalculateProgressZeroDuration(t *testing.T) {
	c := comp(models.StatusActive, base, base)
	assert.Equal(t, 0, CalculateProgress(c, base.Add(-time.Second)))
	assert.Equal(t, 100, CalculateProgress(c, base))
	assert.Equal(t, 100, CalculateProgress(c, base.Add(time.Second)))
}

func TestFormatTimeRemaining(t *testing.T) {
	start := base
	end := base.AddDate(0, 0, 2).Add(4 * time.Hour)
	c := comp(models.StatusActive, start, end)

	assert.Equal(t, "2d 4h", FormatTimeRemaining(c, start))
	assert.Equal(t, "", FormatTimeRemaining(c, end))
}
