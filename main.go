package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solartrack/internal/api"
	"solartrack/internal/audit"
	"solartrack/internal/config"
	"solartrack/internal/database"
	"solartrack/internal/i18n"
	"solartrack/internal/logger"
	"solartrack/internal/middleware"
	"solartrack/internal/monitoring"
	"solartrack/internal/service"
	"solartrack/internal/storage"
	"solartrack/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.NewConfig()

	telemetry, err := monitoring.NewOpenTelemetry(cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	appLogger := logger.New(*cfg)

	i18nInstance := i18n.New(cfg.I18n.DefaultLanguage)
	if err := i18nInstance.LoadTranslations(cfg.I18n.TranslationsDir); err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	ctx := context.Background()

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	sessionStorage := postgres.New(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		Table:    "tbl_session",
		Reset:    false,
	})

	store := session.New(session.Config{
		Storage:        sessionStorage,
		KeyLookup:      "cookie:session_id",
		CookiePath:     "/",
		CookieSecure:   cfg.Session.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     cfg.Session.Expiration,
	})

	patrolLocation, err := time.LoadLocation(cfg.Patrol.Timezone)
	if err != nil {
		log.Fatalf("Failed to load patrol timezone: %v", err)
	}

	auditor := audit.New(&db)
	limiterSvc := service.NewRateLimiter(redisClient)
	authSvc := service.NewAuthService(&db, limiterSvc, auditor)
	faultSvc := service.NewFaultService(&db, telemetry, auditor)
	patrolSvc := service.NewPatrolService(&db, patrolLocation)

	handler := api.NewHandler(store, &db, authSvc, faultSvc, patrolSvc, blobs, validator.New())

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(middleware.Logger())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.I18nMiddleware(i18nInstance, store))

	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Session.CookieSecure,
		Expiration:     1 * time.Hour,
		KeyGenerator:   utils.UUIDv4,
		ContextKey:     "token",
	}))

	// A coarse per-IP limit in front of the per-email Redis counter.
	loginLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": middleware.T(c, "auth.too_many_attempts"),
			})
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() != "/login"
		},
	})
	app.Use(loginLimiter)

	handler.RegisterRoutes(app)

	go func() {
		appLogger.Info("Starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := app.Listen(cfg.Server.Host + ":" + cfg.Server.Port); err != nil {
			appLogger.Error("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		appLogger.Error("Redis shutdown failed", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Telemetry shutdown failed", "error", err)
	}
}
