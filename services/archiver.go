package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"season-competition-system/models"
	"season-competition-system/utils"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// ArchiveService runs the finalize-and-archive sequence for one
// competition: compute standings, apply grants, write the immutable
// snapshot, flip the status, then fan out best-effort notifications. It is
// the sole writer of archive rows.
type ArchiveService struct {
	DB       *gorm.DB
	Clock    clockwork.Clock
	Grants   *GrantService
	Notifier NotificationDispatcher
	Exporter *utils.ArchiveExporter // nil when object storage is not configured
}

func NewArchiveService(db *gorm.DB, clock clockwork.Clock, grants *GrantService, notifier NotificationDispatcher, exporter *utils.ArchiveExporter) *ArchiveService {
	if notifier == nil {
		notifier = NoopDispatcher{}
	}
	return &ArchiveService{DB: db, Clock: clock, Grants: grants, Notifier: notifier, Exporter: exporter}
}

// ErrCompetitionCancelled is returned when finalization is requested for a
// cancelled competition.
var ErrCompetitionCancelled = errors.New("competition is cancelled")

// FinalizeCompetition finalizes one competition and returns its archive.
// At-most-once: if an archive already exists for the season it is returned
// unchanged and no rewards are re-granted. Grant application, the archive
// write and the status flip share one transaction; the status update is
// additionally conditioned on the current status so a racing caller's
// update is a no-op.
func (s *ArchiveService) FinalizeCompetition(comp *models.Competition, now time.Time) (*models.SeasonArchive, error) {
	if comp.Status == models.StatusCancelled {
		return nil, ErrCompetitionCancelled
	}

	if existing, err := s.archiveFor(comp.ID); err != nil {
		return nil, err
	} else if existing != nil {
		log.Printf("[Archiver] Archive already exists for %q, skipping finalization", comp.Name)
		return existing, nil
	}

	var participants []models.Participant
	if err := s.DB.Where("competition_id = ?", comp.ID).
		Order("enrolled_at ASC").
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	result := ComputeFinalResult(comp, participants)

	archive := &models.SeasonArchive{
		ID:               uuid.NewString(),
		SeasonID:         comp.ID,
		SeasonName:       comp.Name,
		SeasonType:       comp.Type,
		StartDate:        comp.StartDate,
		EndDate:          comp.EndDate,
		FinalRankings:    result.Rankings,
		ParticipantCount: result.Stats.ActiveParticipants,
		SeasonStats:      result.Stats,
		ArchivedAt:       now,
	}

	// Grants ride in the same transaction as the archive write: if a
	// concurrent finalizer wins the SeasonID unique index, the loser's
	// grants roll back with its archive instead of double-granting.
	var grantResult GrantBatchResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		grantResult = NewGrantService(tx).ApplyGrants(comp.ID, result.Grants, now)
		archive.RewardsDistributed = grantResult.Granted
		for _, rp := range result.Ranked {
			rank := rp.FinalRank
			if err := tx.Model(&models.Participant{}).
				Where("id = ?", rp.Participant.ID).
				Update("overall_rank", rank).Error; err != nil {
				return fmt.Errorf("assign rank to %s: %w", rp.Participant.UserID, err)
			}
		}
		if err := tx.Create(archive).Error; err != nil {
			return fmt.Errorf("archive write: %w", err)
		}
		res := tx.Model(&models.Competition{}).
			Where("id = ? AND status IN ?", comp.ID, []models.CompetitionStatus{models.StatusActive, models.StatusUpcoming}).
			Update("status", models.StatusCompleted)
		if res.Error != nil {
			return fmt.Errorf("status update: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent caller archived first; theirs is the record.
			if existing, lookupErr := s.archiveFor(comp.ID); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if len(grantResult.Failures) > 0 {
		log.Printf("[Archiver] %d/%d reward grants failed for %q",
			len(grantResult.Failures), len(result.Grants), comp.Name)
	}

	comp.Status = models.StatusCompleted
	utils.CompetitionsCompleted.Inc()
	log.Printf("[Archiver] Archived %q: %d participants, %d rewards distributed",
		comp.Name, archive.ParticipantCount, archive.RewardsDistributed)

	for _, rp := range result.Ranked {
		s.Grants.RecordSeasonOutcome(rp.Participant.UserID, hasTierGrant(comp, rp.FinalRank))
	}

	s.exportSnapshot(archive)
	s.notifyParticipants(comp, result, now)

	return archive, nil
}

func (s *ArchiveService) archiveFor(seasonID string) (*models.SeasonArchive, error) {
	var archive models.SeasonArchive
	err := s.DB.Where("season_id = ?", seasonID).First(&archive).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive lookup: %w", err)
	}
	return &archive, nil
}

func hasTierGrant(comp *models.Competition, rank int) bool {
	for _, tier := range comp.Rewards.Tiers {
		if rank >= tier.Place.Low && rank <= tier.Place.High {
			return true
		}
	}
	return false
}

// exportSnapshot pushes the archive JSON to object storage. Best effort.
func (s *ArchiveService) exportSnapshot(archive *models.SeasonArchive) {
	if s.Exporter == nil {
		return
	}
	if err := s.Exporter.ExportArchive(archive.SeasonName, archive); err != nil {
		log.Printf("[Archiver] Snapshot export failed for %q: %v", archive.SeasonName, err)
	}
}

// notifyParticipants emits one completion event per ranked participant.
// Failures are logged and dropped; the archive is already durable.
func (s *ArchiveService) notifyParticipants(comp *models.Competition, result FinalResult, now time.Time) {
	rewardsByUser := make(map[string][]models.RewardDescriptor)
	for _, g := range result.Grants {
		rewardsByUser[g.UserID] = append(rewardsByUser[g.UserID], g.Reward)
	}

	for _, rp := range result.Ranked {
		notice := CompletionNotice{
			UserID:        rp.Participant.UserID,
			CompetitionID: comp.ID,
			SeasonName:    comp.Name,
			FinalRank:     rp.FinalRank,
			Score:         rp.Participant.TotalScore,
			Rewards:       rewardsByUser[rp.Participant.UserID],
			CompletedAt:   now,
		}
		if err := s.Notifier.DispatchCompletion(notice); err != nil {
			utils.NotifyFailures.Inc()
			log.Printf("[Notify] Completion event for %s failed: %v", rp.Participant.UserID, err)
		}
	}
}
