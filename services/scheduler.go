// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartEngineScheduler starts the recurring engine tick: materialize
// upcoming season windows, then advance statuses. Both operations are
// idempotent, so an overlapping manual trigger or a second instance
// running the same jobs is harmless.
func (s *SeasonService) StartEngineScheduler() {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.Clock))
	if err != nil {
		log.Printf("[Scheduler] Failed to start: %v", err)
		return
	}
	sched.Start()

	// Every hour: make sure upcoming seasons exist ahead of their start.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			created, err := s.AutoCreator.AutoCreate(s.Clock.Now())
			if err != nil {
				log.Printf("[Scheduler] Auto-create reported failures: %v", err)
			}
			if created > 0 {
				log.Printf("[Scheduler] Auto-created %d competition(s)", created)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)

	// Every minute: activate due seasons and finalize ended ones.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			activated, completed, err := s.Transitions.UpdateStatuses(s.Clock.Now())
			if err != nil {
				log.Printf("[Scheduler] Status update error: %v", err)
				return
			}
			if activated > 0 || completed > 0 {
				log.Printf("[Scheduler] Activated %d, completed %d competition(s)", activated, completed)
			}
		}),
	)
}
