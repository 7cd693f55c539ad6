package services

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"season-competition-system/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// SeasonService is the HTTP surface of the competition engine: listing and
// detail reads (phase computed on the fly, never persisted), joining and
// leaving, archives, and the admin triggers for the engine components.
type SeasonService struct {
	DB          *gorm.DB
	Clock       clockwork.Clock
	AutoCreator *AutoCreateService
	Transitions *TransitionService
	Archiver    *ArchiveService

	validate *validator.Validate
}

func NewSeasonService(db *gorm.DB, clock clockwork.Clock, autoCreator *AutoCreateService, transitions *TransitionService, archiver *ArchiveService) *SeasonService {
	return &SeasonService{
		DB:          db,
		Clock:       clock,
		AutoCreator: autoCreator,
		Transitions: transitions,
		Archiver:    archiver,
		validate:    validator.New(),
	}
}

// participantStats is the aggregate row computed per competition for the
// listing endpoint.
type participantStats struct {
	CompetitionID string
	Count         int64
	AvgScore      float64
	MaxScore      float64
}

// ListCompetitions returns competition summaries with computed phase,
// progress and participant stats. Without a status filter the order is
// upcoming, then active, then completed, newest start date first inside
// each group.
func (s *SeasonService) ListCompetitions(c *fiber.Ctx) error {
	now := s.Clock.Now()

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be between 1 and 200"})
		}
		limit = n
	}

	query := s.DB.Model(&models.Competition{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", strings.ToLower(status))
	}
	if compType := c.Query("type"); compType != "" {
		query = query.Where("type = ?", strings.ToLower(compType))
	}

	var competitions []models.Competition
	err := query.
		Order("CASE status WHEN 'upcoming' THEN 0 WHEN 'active' THEN 1 WHEN 'completed' THEN 2 ELSE 3 END").
		Order("start_date DESC").
		Limit(limit).
		Find(&competitions).Error
	if err != nil {
		log.Printf("ERROR fetching competitions: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch competitions"})
	}

	ids := make([]string, len(competitions))
	for i, comp := range competitions {
		ids[i] = comp.ID
	}

	statsByID := make(map[string]participantStats)
	if len(ids) > 0 {
		var rows []participantStats
		err := s.DB.Model(&models.Participant{}).
			Select("competition_id, COUNT(*) as count, COALESCE(AVG(total_score), 0) as avg_score, COALESCE(MAX(total_score), 0) as max_score").
			Where("competition_id IN ? AND is_active = ?", ids, true).
			Group("competition_id").
			Scan(&rows).Error
		if err != nil {
			log.Printf("ERROR aggregating participant stats: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participant stats"})
		}
		for _, r := range rows {
			statsByID[r.CompetitionID] = r
		}
	}

	for i := range competitions {
		Decorate(&competitions[i], now)
		if stats, ok := statsByID[competitions[i].ID]; ok {
			competitions[i].ParticipantCount = stats.Count
			competitions[i].AverageScore = roundTo2(stats.AvgScore)
			competitions[i].TopScore = stats.MaxScore
		}
	}

	return c.JSON(fiber.Map{"competitions": competitions, "count": len(competitions)})
}

// GetCompetitionDetails returns one competition with its participants
// (overall rank ascending, unranked last), the caller's own participation
// when user context is present, and the archive once completed.
func (s *SeasonService) GetCompetitionDetails(c *fiber.Ctx) error {
	now := s.Clock.Now()
	id := c.Params("id")

	var comp models.Competition
	if err := s.DB.First(&comp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "competition not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	Decorate(&comp, now)

	var participants []models.Participant
	if err := s.DB.Where("competition_id = ?", id).
		Order("overall_rank IS NULL, overall_rank ASC, total_score DESC").
		Find(&participants).Error; err != nil {
		log.Printf("ERROR fetching participants for %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	comp.ParticipantCount = int64(len(participants))

	response := fiber.Map{
		"competition":  comp,
		"participants": participants,
	}

	if userID, _ := c.Locals("user_id").(string); userID != "" {
		for i := range participants {
			if participants[i].UserID == userID {
				response["user_participation"] = participants[i]
				break
			}
		}
	}

	if comp.Status == models.StatusCompleted {
		var archive models.SeasonArchive
		if err := s.DB.Where("season_id = ?", id).First(&archive).Error; err == nil {
			response["archive"] = archive
		}
	}

	return c.JSON(response)
}

// GetLeaderboard returns the active participants of one competition,
// ordered by overall rank (score breaks pre-finalization order).
func (s *SeasonService) GetLeaderboard(c *fiber.Ctx) error {
	id := c.Params("id")

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be between 1 and 500"})
		}
		limit = n
	}

	if err := s.DB.First(&models.Competition{}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "competition not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var total int64
	s.DB.Model(&models.Participant{}).
		Where("competition_id = ? AND is_active = ?", id, true).
		Count(&total)

	var leaderboard []models.Participant
	if err := s.DB.Where("competition_id = ? AND is_active = ?", id, true).
		Order("overall_rank IS NULL, overall_rank ASC, total_score DESC").
		Limit(limit).
		Find(&leaderboard).Error; err != nil {
		log.Printf("ERROR fetching leaderboard for %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	return c.JSON(fiber.Map{
		"leaderboard":        leaderboard,
		"total_participants": total,
	})
}

// GetArchive returns the archive row of one completed season.
func (s *SeasonService) GetArchive(c *fiber.Ctx) error {
	id := c.Params("id")
	var archive models.SeasonArchive
	if err := s.DB.Where("season_id = ?", id).First(&archive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "archive not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(archive)
}

// ListArchives returns recent archives, newest first.
func (s *SeasonService) ListArchives(c *fiber.Ctx) error {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be between 1 and 100"})
		}
		limit = n
	}

	var archives []models.SeasonArchive
	if err := s.DB.Order("archived_at DESC").Limit(limit).Find(&archives).Error; err != nil {
		log.Printf("ERROR fetching archives: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch archives"})
	}
	return c.JSON(fiber.Map{"archives": archives, "count": len(archives)})
}

// JoinCompetition enrolls the calling user. Idempotent: re-joining an
// inactive record reactivates it instead of duplicating, and joining twice
// is a no-op conflict.
func (s *SeasonService) JoinCompetition(c *fiber.Ctx) error {
	now := s.Clock.Now()
	id := c.Params("id")

	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "user context required"})
	}

	var req struct {
		UserName string `json:"user_name" validate:"required,min=1,max=64"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "user_name is required (1-64 chars)"})
	}

	var comp models.Competition
	if err := s.DB.First(&comp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "competition not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	switch CalculatePhase(&comp, now) {
	case models.PhaseCompleted, models.PhaseArchived:
		return c.Status(403).JSON(fiber.Map{"error": "competition is over"})
	}

	var existing models.Participant
	err := s.DB.Where("competition_id = ? AND user_id = ?", id, userID).First(&existing).Error
	if err == nil {
		if existing.IsActive {
			return c.Status(409).JSON(fiber.Map{
				"error":       "already joined",
				"participant": existing,
			})
		}
		// Soft-left earlier: reactivate instead of duplicating.
		updates := map[string]interface{}{
			"is_active": true,
			"user_name": req.UserName,
		}
		if err := s.DB.Model(&existing).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to rejoin"})
		}
		existing.IsActive = true
		return c.JSON(fiber.Map{"message": "rejoined competition", "participant": existing})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if comp.MaxParticipants > 0 {
		var count int64
		s.DB.Model(&models.Participant{}).
			Where("competition_id = ? AND is_active = ?", id, true).
			Count(&count)
		if int(count) >= comp.MaxParticipants {
			return c.Status(403).JSON(fiber.Map{"error": "competition is full"})
		}
	}

	participant := models.Participant{
		ID:            uuid.NewString(),
		CompetitionID: id,
		UserID:        userID,
		UserName:      req.UserName,
		IsActive:      true,
		EnrolledAt:    now,
	}
	if err := s.DB.Create(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent join from the same user; treat as already joined.
			return c.Status(409).JSON(fiber.Map{"error": "already joined"})
		}
		log.Printf("ERROR creating participant for %s in %s: %v", userID, id, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to join competition"})
	}

	return c.Status(201).JSON(fiber.Map{"message": "joined competition", "participant": participant})
}

// LeaveCompetition soft-leaves: the record stays, scores stay, the
// participant just stops counting as active.
func (s *SeasonService) LeaveCompetition(c *fiber.Ctx) error {
	id := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "user context required"})
	}

	res := s.DB.Model(&models.Participant{}).
		Where("competition_id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to leave competition"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "active participation not found"})
	}
	return c.JSON(fiber.Map{"message": "left competition"})
}

// GetUserProgress returns the caller's cumulative progression counter.
func (s *SeasonService) GetUserProgress(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "user context required"})
	}

	var prog models.UserProgress
	if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No rewards yet. Report starting values rather than 404.
			return c.JSON(models.UserProgress{UserID: userID, Level: 1, Rank: 1})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(prog)
}

// GetUserCollectibles returns the caller's inventory, newest first.
func (s *SeasonService) GetUserCollectibles(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "user context required"})
	}

	var items []models.CollectibleItem
	if err := s.DB.Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&items).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch collectibles"})
	}
	return c.JSON(fiber.Map{"collectibles": items, "count": len(items)})
}

// GetUserRewards returns the caller's grant ledger, newest first.
func (s *SeasonService) GetUserRewards(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "user context required"})
	}

	var rewards []models.RewardDistribution
	if err := s.DB.Where("user_id = ?", userID).
		Order("distributed_at DESC").
		Find(&rewards).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch rewards"})
	}
	return c.JSON(fiber.Map{"rewards": rewards, "count": len(rewards)})
}

// --- Admin / system triggers ---

// AutoCreateCompetitions materializes upcoming season windows. Duplicate
// windows are skipped silently; individual creation failures are reported
// without failing the call.
func (s *SeasonService) AutoCreateCompetitions(c *fiber.Ctx) error {
	created, err := s.AutoCreator.AutoCreate(s.Clock.Now())
	if err != nil {
		log.Printf("[AutoCreate] Partial failure: %v", err)
		return c.Status(207).JSON(fiber.Map{"created": created, "partial_failure": err.Error()})
	}
	return c.JSON(fiber.Map{"created": created})
}

// UpdateStatuses runs one transition pass and reports the counts.
func (s *SeasonService) UpdateStatuses(c *fiber.Ctx) error {
	activated, completed, err := s.Transitions.UpdateStatuses(s.Clock.Now())
	if err != nil {
		log.Printf("[Transition] Status update failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "status update failed"})
	}
	return c.JSON(fiber.Map{"activated": activated, "completed": completed})
}

// CompleteCompetition forces finalization of one competition regardless of
// its end date. Returns the existing archive when the season was already
// finalized.
func (s *SeasonService) CompleteCompetition(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).JSON(fiber.Map{"error": "competition id required"})
	}

	var comp models.Competition
	if err := s.DB.First(&comp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "competition not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	archive, err := s.Archiver.FinalizeCompetition(&comp, s.Clock.Now())
	if err != nil {
		if errors.Is(err, ErrCompetitionCancelled) {
			return c.Status(409).JSON(fiber.Map{"error": "competition is cancelled"})
		}
		log.Printf("[Archiver] Forced completion of %s failed: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "finalization failed"})
	}
	return c.JSON(fiber.Map{"archive": archive})
}
