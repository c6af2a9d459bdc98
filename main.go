package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accord-ai/config"
	"accord-ai/handlers"
	"accord-ai/services"
)

func main() {
	// Initialize structured logger before anything logs
	var logLevel slog.LevelVar
	slog.SetDefault(newLogger(os.Stdout, &logLevel))

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	cfg := loadConfig(&logLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		store       services.DatasetStore
		authEnabled bool
		ping        func(context.Context) error
	)
	if cfg.DatasetStore == "memory" {
		slog.Warn("Using in-memory dataset store, accounts are disabled")
		store = services.NewMemoryDatasetStore()
	} else {
		db, err := services.InitMongoDB(ctx, cfg.MongoURI)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer db.Disconnect(context.Background())

		mongoStore, err := services.InitServices(db, cfg.DatabaseName)
		if err != nil {
			slog.Error("Failed to create indexes", "error", err)
			// Continue anyway - the app can still work without indexes
		}
		if mongoStore == nil {
			mongoStore = services.NewMongoDatasetStore(services.GetDatabase())
		}
		store = mongoStore
		authEnabled = true
		ping = services.PingDatabase
	}

	// Background jobs
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	if authEnabled {
		services.StartSessionCleanup(jobsCtx, time.Hour)
	}

	// Resolution pipeline
	matcher := services.NewDatasetMatcher(store)
	datasetService := services.NewDatasetService(store)
	gemini := services.NewGeminiClient(
		cfg.GeminiAPIURL,
		cfg.GeminiAPIKey,
		cfg.GeminiTemperature,
		cfg.GeminiTimeout,
		services.NewRateLimiter(cfg.GeminiRPM),
	)
	backup := services.NewBackupClient(cfg.BackupAPIURL, cfg.BackupTimeout)

	resolverCfg := services.DefaultResolverConfig()
	resolverCfg.HighConfidence = cfg.HighConfidence
	resolverCfg.LowConfidence = cfg.LowConfidence
	resolverCfg.ChatMaxTokens = cfg.GeminiChatMaxTokens
	resolverCfg.FileMaxTokens = cfg.GeminiFileMaxTokens
	resolver := services.NewResolver(matcher, gemini, backup, datasetService, resolverCfg)

	services.RegisterMetrics(prometheus.DefaultRegisterer, store)

	var quota handlers.QuotaFunc
	if authEnabled {
		quota = func(ctx context.Context, userID string) error {
			return services.ConsumeDailyMessage(ctx, userID, cfg.DailyMessageLimit)
		}
	}

	sockets := services.GetWebSocketManager()
	storeName := "mongo"
	if !authEnabled {
		storeName = "memory"
	}

	health := handlers.NewHealthHandler(ping, sockets, storeName)
	if authEnabled {
		health.WithSessionCount(services.CountActiveSessions)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes + 1024*1024,
	})

	// Middleware
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		ExposeHeaders:    "Content-Length, Content-Type, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:           86400, // 24 hours
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} ${latency}\n",
	}))

	handlers.RegisterRoutes(app, handlers.Routes{
		AI:                 handlers.NewAIHandler(resolver, quota, cfg.MaxUploadBytes),
		Dataset:            handlers.NewDatasetHandler(datasetService, matcher, sockets),
		Socket:             handlers.NewChatSocketHandler(resolver, sockets),
		Health:             health,
		AuthEnabled:        authEnabled,
		RateLimitPerMinute: cfg.RateLimitPerMin,
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down server")
		cancelJobs()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting", "port", cfg.Port, "store", storeName)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}

// newLogger returns the JSON logger used by the server. The level is read
// through level so configuration loaded later can still change it.
func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads configuration with the default logger already installed,
// then applies the configured log level
func loadConfig(level *slog.LevelVar) *config.Config {
	cfg := config.LoadConfig()
	level.Set(cfg.LogLevel)
	return cfg
}
