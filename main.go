package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"claim-link-service/config"
	"claim-link-service/handlers"
	"claim-link-service/middleware"
	"claim-link-service/models"
	"claim-link-service/services"
	"claim-link-service/utils"
	"claim-link-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func main() {
	cfg, loadedDotenv, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !loadedDotenv {
		logger.Warn("no .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get sql.DB", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.AutoMigrate(&models.Event{}, &models.ClaimLink{}); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	rewardNames := services.DefaultRewardNames
	if len(cfg.RewardCatalog) > 0 {
		rewardNames = cfg.RewardCatalog
	}
	catalog, err := services.NewRewardCatalog(rewardNames)
	if err != nil {
		logger.Fatal("invalid reward catalog", zap.Error(err))
	}

	// --- Notifications ---
	var sender workers.Sender = workers.LogSender{Logger: logger}
	if cfg.DiscordWebhookURL != "" {
		sender = workers.NewDiscordWebhookSender(cfg.DiscordWebhookURL, utils.NewHTTPClient(cfg.NotifyTimeout))
	} else {
		logger.Warn("DISCORD_WEBHOOK_URL not set, winners will only be logged")
	}
	dispatcher := workers.NewNotificationDispatcher(sender, cfg.NotifyQueueSize, cfg.NotifyWorkers, cfg.NotifyTimeout, logger.Named("notify"))
	// Outlives ctx so claims finishing during HTTP shutdown still get announced.
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()
	dispatcher.Start(notifyCtx)

	// --- Core ---
	linkStore := services.NewGormLinkStore(db, cfg.DBLockTimeout)
	engine := services.NewClaimEngine(linkStore, services.NewRewardSelector(catalog), dispatcher, logger.Named("claim"))
	linkService := services.NewLinkService(db, cfg.LinkTTL, logger.Named("links"))
	authService := services.NewAuthService(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AdminTokenTTL, logger.Named("auth"))

	if cfg.SeedDemoEvent {
		if err := linkService.SeedDemoEvent(ctx); err != nil {
			logger.Error("failed to seed demo event", zap.Error(err))
		}
	}

	// --- Scheduled jobs ---
	var uploader services.SnapshotUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket, cfg.R2.CDNBaseURL)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		uploader = r2
	}
	sched, err := linkService.StartScheduler(cfg.ExpiryReportInterval, cfg.SnapshotInterval, uploader)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		AppName:      "claim-link-service",
		BodyLimit:    64 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger.Named("http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type, Authorization",
		AllowCredentials: true,
	}))

	handlers.SetupSystemRoutes(app, db, cfg.HealthDBTimeout, logger)
	handlers.SetupClaimRoutes(app, engine, linkStore, logger.Named("claim"))
	handlers.SetupLinkRoutes(app, linkService, authService, logger)
	app.Use(handlers.NotFound)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("✅ server running",
		zap.String("port", cfg.Port),
		zap.Int("rewards", catalog.Len()),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
		zap.Bool("winners_snapshot", uploader != nil),
	)

	<-ctx.Done()
	logger.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown", zap.Error(err))
	}
	stopNotify()
	dispatcher.Wait()
	stats := dispatcher.Stats()
	logger.Info("notification dispatcher stopped",
		zap.Int64("delivered", stats.Delivered),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped),
	)
	if err := sqlDB.Close(); err != nil {
		logger.Error("database close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
