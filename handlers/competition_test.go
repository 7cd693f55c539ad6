package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"season-competition-system/models"
	"season-competition-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Wednesday, before the first auto-created weekly window starts.
var testNow = time.Date(2026, time.January, 7, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *clockwork.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Competition{},
		&models.Participant{},
		&models.SeasonArchive{},
		&models.RewardDistribution{},
		&models.CollectibleItem{},
		&models.UserProgress{},
	))

	clock := clockwork.NewFakeClockAt(testNow)
	grants := services.NewGrantService(db)
	archiver := services.NewArchiveService(db, clock, grants, nil, nil)
	autoCreator := services.NewAutoCreateService(db, clock)
	transitions := services.NewTransitionService(db, clock, archiver)
	seasonService := services.NewSeasonService(db, clock, autoCreator, transitions, archiver)

	app := fiber.New()
	SetupSeasonRoutes(app, seasonService)
	return app, db, clock
}

func request(t *testing.T, app *fiber.App, method, path string, headers map[string]string, body any) (int, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func adminHeaders(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID, "X-User-Roles": "admin"}
}

func userHeaders(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

func TestSeasonLifecycleOverHTTP(t *testing.T) {
	app, db, clock := newTestApp(t)

	// Materialize the season windows.
	status, body := request(t, app, http.MethodPost, "/admin/competitions/auto-create", adminHeaders("u-admin"), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(4), body["created"])

	// Find the first weekly window.
	status, body = request(t, app, http.MethodGet, "/competitions?type=weekly&status=upcoming", userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	comps := body["competitions"].([]any)
	require.Len(t, comps, 2)

	var compID string
	for _, raw := range comps {
		c := raw.(map[string]any)
		if c["name"] == "weekly-season-2026-01-12" {
			compID = c["id"].(string)
			assert.Equal(t, "registration", c["phase"])
			assert.Equal(t, float64(0), c["progress"])
		}
	}
	require.NotEmpty(t, compID)

	// Three users join during registration.
	for _, u := range []string{"u-alice", "u-bob", "u-cara"} {
		status, _ = request(t, app, http.MethodPost, "/competitions/"+compID+"/join",
			userHeaders(u), fiber.Map{"user_name": "player-" + u})
		require.Equal(t, 201, status, "join for %s", u)
	}

	// Joining twice conflicts but changes nothing.
	status, _ = request(t, app, http.MethodPost, "/competitions/"+compID+"/join",
		userHeaders("u-alice"), fiber.Map{"user_name": "player-u-alice"})
	assert.Equal(t, 409, status)

	// Scores accumulate over the season.
	for user, score := range map[string]float64{"u-alice": 120, "u-bob": 80, "u-cara": 40} {
		require.NoError(t, db.Model(&models.Participant{}).
			Where("competition_id = ? AND user_id = ?", compID, user).
			Update("total_score", score).Error)
	}

	// One participant drops out before the end.
	status, _ = request(t, app, http.MethodPost, "/competitions/"+compID+"/leave", userHeaders("u-cara"), nil)
	require.Equal(t, 200, status)

	// Past the end date one transition pass activates and finalizes.
	clock.Advance(13 * 24 * time.Hour) // Jan 20: first weekly over, second running
	status, body = request(t, app, http.MethodPost, "/admin/competitions/update-statuses", adminHeaders("u-admin"), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), body["activated"])
	assert.Equal(t, float64(1), body["completed"])

	// Details now carry the completed status and the archive.
	status, body = request(t, app, http.MethodGet, "/competitions/"+compID, userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	comp := body["competition"].(map[string]any)
	assert.Equal(t, "completed", comp["status"])
	assert.Equal(t, "completed", comp["phase"])
	require.Contains(t, body, "archive")
	userPart := body["user_participation"].(map[string]any)
	assert.Equal(t, float64(1), userPart["overall_rank"])

	archive := body["archive"].(map[string]any)
	assert.Equal(t, float64(2), archive["participant_count"])
	stats := archive["season_stats"].(map[string]any)
	assert.Equal(t, 0.67, stats["completion_rate"])
	assert.Equal(t, float64(120), stats["top_score"])

	rankings := archive["final_rankings"].([]any)
	require.Len(t, rankings, 2)
	first := rankings[0].(map[string]any)
	assert.Equal(t, "u-alice", first["user_id"])
	assert.Equal(t, float64(1), first["rank"])

	// The leaderboard excludes the dropout and orders by final rank.
	status, body = request(t, app, http.MethodGet, "/competitions/"+compID+"/leaderboard", userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	leaderboard := body["leaderboard"].([]any)
	require.Len(t, leaderboard, 2)
	assert.Equal(t, "u-alice", leaderboard[0].(map[string]any)["user_id"])
	assert.Equal(t, "u-bob", leaderboard[1].(map[string]any)["user_id"])
	assert.Equal(t, float64(2), body["total_participants"])

	// The winner sees the trophy, the ledger rows and the points.
	status, body = request(t, app, http.MethodGet, "/users/me/rewards", userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), body["count"])

	status, body = request(t, app, http.MethodGet, "/users/me/collectibles", userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	require.Equal(t, float64(1), body["count"])
	trophy := body["collectibles"].([]any)[0].(map[string]any)
	assert.Equal(t, "trophy", trophy["type"])

	status, body = request(t, app, http.MethodGet, "/users/me/progress", userHeaders("u-alice"), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(550), body["total_points"])

	// Forcing completion again returns the same archive without re-granting.
	status, body = request(t, app, http.MethodPost, "/admin/competitions/"+compID+"/complete", adminHeaders("u-admin"), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, archive["id"], body["archive"].(map[string]any)["id"])

	var grants int64
	db.Model(&models.RewardDistribution{}).Where("source_id = ?", compID).Count(&grants)
	assert.Equal(t, int64(4), grants) // trophy, medal, two participation rewards
}

func TestJoinRequiresUserContext(t *testing.T) {
	app, db, _ := newTestApp(t)

	comp := models.Competition{
		ID: "comp-1", Name: "weekly-season-2026-01-12", DisplayName: "Weekly Season",
		Type: models.CompetitionWeekly, Status: models.StatusActive,
		StartDate: testNow.AddDate(0, 0, -1), EndDate: testNow.AddDate(0, 0, 6),
	}
	require.NoError(t, db.Create(&comp).Error)

	status, _ := request(t, app, http.MethodPost, "/competitions/comp-1/join", nil, fiber.Map{"user_name": "ghost"})
	assert.Equal(t, 401, status)

	status, _ = request(t, app, http.MethodPost, "/competitions/comp-1/join", userHeaders("u-a"), fiber.Map{})
	assert.Equal(t, 400, status)
}

func TestJoinRefusedAfterCompletion(t *testing.T) {
	app, db, _ := newTestApp(t)

	comp := models.Competition{
		ID: "comp-1", Name: "weekly-season-2025-12-29", DisplayName: "Weekly Season",
		Type: models.CompetitionWeekly, Status: models.StatusCompleted,
		StartDate: testNow.AddDate(0, 0, -9), EndDate: testNow.AddDate(0, 0, -2),
	}
	require.NoError(t, db.Create(&comp).Error)

	status, _ := request(t, app, http.MethodPost, "/competitions/comp-1/join", userHeaders("u-a"), fiber.Map{"user_name": "late"})
	assert.Equal(t, 403, status)
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, _ := request(t, app, http.MethodPost, "/admin/competitions/auto-create", userHeaders("u-a"), nil)
	assert.Equal(t, 403, status)

	status, _ = request(t, app, http.MethodPost, "/admin/competitions/update-statuses", nil, nil)
	assert.Equal(t, 403, status)
}

func TestUnknownCompetitionReturns404(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, _ := request(t, app, http.MethodGet, "/competitions/nope", userHeaders("u-a"), nil)
	assert.Equal(t, 404, status)

	status, _ = request(t, app, http.MethodGet, "/competitions/nope/leaderboard", userHeaders("u-a"), nil)
	assert.Equal(t, 404, status)

	status, _ = request(t, app, http.MethodGet, "/competitions/nope/archive", userHeaders("u-a"), nil)
	assert.Equal(t, 404, status)
}
