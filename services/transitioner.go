package services

import (
	"fmt"
	"log"
	"time"

	"season-competition-system/models"
	"season-competition-system/utils"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// TransitionService advances persisted competition status as time passes.
// It is the only component that mutates status (the archiver's final flip
// runs on its behalf). Cancelled competitions are terminal and never touched.
type TransitionService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Archiver *ArchiveService
}

func NewTransitionService(db *gorm.DB, clock clockwork.Clock, archiver *ArchiveService) *TransitionService {
	return &TransitionService{DB: db, Clock: clock, Archiver: archiver}
}

// ActivateDue flips every upcoming competition whose start date has passed
// to active. A conditional bulk update, so each row transitions at most
// once even under concurrent callers.
func (s *TransitionService) ActivateDue(now time.Time) (int64, error) {
	res := s.DB.Model(&models.Competition{}).
		Where("status = ? AND start_date <= ?", models.StatusUpcoming, now).
		Update("status", models.StatusActive)
	if res.Error != nil {
		return 0, fmt.Errorf("activate due competitions: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		utils.CompetitionsActivated.Add(float64(res.RowsAffected))
		log.Printf("[Transition] Activated %d competition(s)", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// CompleteDue finalizes every active competition whose end date has
// passed, one at a time. A failure finalizing one competition is logged and
// does not stop the others. Returns the number fully completed.
func (s *TransitionService) CompleteDue(now time.Time) (int, error) {
	var due []models.Competition
	if err := s.DB.Where("status = ? AND end_date <= ?", models.StatusActive, now).
		Order("end_date ASC").
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("load due competitions: %w", err)
	}

	completed := 0
	for i := range due {
		comp := &due[i]
		if _, err := s.Archiver.FinalizeCompetition(comp, now); err != nil {
			log.Printf("[Transition] Failed to finalize %q: %v", comp.Name, err)
			continue
		}
		completed++
	}
	return completed, nil
}

// UpdateStatuses runs one full transition pass: activations first, then
// completions, all against the same instant.
func (s *TransitionService) UpdateStatuses(now time.Time) (activated int64, completed int, err error) {
	activated, err = s.ActivateDue(now)
	if err != nil {
		return 0, 0, err
	}
	completed, err = s.CompleteDue(now)
	return activated, completed, err
}
