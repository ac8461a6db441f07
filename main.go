package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"student-engagement-system/handlers"
	"student-engagement-system/middleware"
	"student-engagement-system/models"
	"student-engagement-system/services"
	"student-engagement-system/utils"
	"student-engagement-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024, // 50MB, certificate templates are PDFs
	})

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Role",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which the award claim logic depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.PointsLedgerEntry{},
		&models.StudentBadge{},
		&models.Certificate{},
		&models.MonthlyLeaderboardRow{},
		&models.MonthlyAwardRun{},
		&models.Notification{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.TaskSubmission{},
		&models.WeeklyChallenge{},
		&models.WeeklyChallengeEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDirs(); err != nil {
		log.Fatal("failed to ensure upload dirs:", err)
	}

	engagementService := services.NewEngagementService(db)
	leaderboardService := services.NewLeaderboardService(db)
	reviewService := services.NewReviewService(db, engagementService)
	templateResolver := services.NewTemplateResolver(utils.CertificateTemplateDir(), "/certificates/templates")
	awardService := services.NewMonthlyAwardService(db, engagementService, templateResolver, os.Getenv("SYSTEM_AWARD_ISSUER_ID"))

	// Backfill once at boot: grades recorded before point accounting
	// existed still have to reach the ledger.
	if migrated, err := reviewService.SyncLegacyTaskGradePoints(500); err != nil {
		log.Printf("⚠️ Legacy point sync failed: %v", err)
	} else if migrated > 0 {
		log.Printf("✅ Legacy point sync migrated %d assignment(s)", migrated)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminderWorker := workers.NewReminderWorker(db, reviewService, engagementService)
	reminderWorker.Start(ctx)

	awardInterval := 6 * time.Hour
	if raw := os.Getenv("AWARD_SCHEDULER_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			awardInterval = parsed
		} else {
			log.Printf("⚠️ Invalid AWARD_SCHEDULER_INTERVAL %q: %v", raw, err)
		}
	}
	awardScheduler := awardService.StartAwardScheduler(awardInterval)
	defer func() { _ = awardScheduler.Shutdown() }()

	handlers.SetupEngagementRoutes(app, engagementService, leaderboardService, awardService, reviewService, templateResolver)

	app.Static("/uploads", "./uploads")
	app.Static("/certificates/templates", utils.CertificateTemplateDir())

	port := os.Getenv("PORT")
	if port == "" {
		port = "4001"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Task Reminder Worker running")
	log.Printf("✅ Monthly award scheduler running (every %s)", awardInterval)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
