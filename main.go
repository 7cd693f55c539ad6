package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"season-competition-system/handlers"
	"season-competition-system/middleware"
	"season-competition-system/models"
	"season-competition-system/services"
	"season-competition-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	// GLOBAL: only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.TrimSpace(allowedOrigins),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-User-Roles, X-System-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Competition{},
		&models.Participant{},
		&models.SeasonArchive{},
		&models.RewardDistribution{},
		&models.CollectibleItem{},
		&models.UserProgress{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	clock := clockwork.NewRealClock()

	// Outbound completion events: NATS when configured, dropped otherwise.
	var notifier services.NotificationDispatcher = services.NoopDispatcher{}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		subject := os.Getenv("NATS_COMPLETION_SUBJECT")
		if subject == "" {
			subject = "seasons.completed"
		}
		natsDispatcher, err := services.NewNATSDispatcher(natsURL, subject)
		if err != nil {
			log.Fatal("failed to connect to NATS:", err)
		}
		defer natsDispatcher.Close()
		notifier = natsDispatcher
		log.Printf("Completion events will be published to %q", subject)
	} else {
		log.Println("NATS_URL not set, completion notifications disabled")
	}

	exporter, err := utils.NewArchiveExporterFromEnv()
	if err != nil {
		log.Fatal("failed to initialize archive exporter:", err)
	}
	if exporter == nil {
		log.Println("R2_BUCKET_NAME not set, archive snapshot export disabled")
	}

	grantService := services.NewGrantService(db)
	archiveService := services.NewArchiveService(db, clock, grantService, notifier, exporter)
	autoCreateService := services.NewAutoCreateService(db, clock)
	transitionService := services.NewTransitionService(db, clock, archiveService)
	seasonService := services.NewSeasonService(db, clock, autoCreateService, transitionService, archiveService)

	seasonService.StartEngineScheduler()

	handlers.SetupSeasonRoutes(app, seasonService)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Season competition engine running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
