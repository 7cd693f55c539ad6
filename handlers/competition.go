package handlers

import (
	"season-competition-system/middleware"
	"season-competition-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSeasonRoutes(app *fiber.App, seasonService *services.SeasonService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Competition reads. Phase and progress are computed per request, never stored.
	secured.Get("/competitions", seasonService.ListCompetitions)
	secured.Get("/competitions/:id", seasonService.GetCompetitionDetails)
	secured.Get("/competitions/:id/leaderboard", seasonService.GetLeaderboard)
	secured.Get("/competitions/:id/archive", seasonService.GetArchive)
	secured.Get("/archives", seasonService.ListArchives)

	// Participation
	secured.Post("/competitions/:id/join", seasonService.JoinCompetition)
	secured.Post("/competitions/:id/leave", seasonService.LeaveCompetition)

	// User progression & reward surfaces
	secured.Get("/users/me/progress", seasonService.GetUserProgress)
	secured.Get("/users/me/collectibles", seasonService.GetUserCollectibles)
	secured.Get("/users/me/rewards", seasonService.GetUserRewards)

	// Admin / system engine triggers
	admin := secured.Group("/admin", middleware.AdminOnly())
	admin.Post("/competitions/auto-create", seasonService.AutoCreateCompetitions)
	admin.Post("/competitions/update-statuses", seasonService.UpdateStatuses)
	admin.Post("/competitions/:id/complete", seasonService.CompleteCompetition)
}
