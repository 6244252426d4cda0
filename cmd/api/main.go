package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/api/handlers"
	"github.com/solairus-intel/feed-engine/internal/clients/econ"
	"github.com/solairus-intel/feed-engine/internal/clients/narrative"
	"github.com/solairus-intel/feed-engine/internal/clients/policy"
	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/internal/metrics"
	"github.com/solairus-intel/feed-engine/internal/middleware/ratelimit"
	"github.com/solairus-intel/feed-engine/internal/middleware/security"
	"github.com/solairus-intel/feed-engine/internal/middleware/validation"
	"github.com/solairus-intel/feed-engine/internal/runner"
	"github.com/solairus-intel/feed-engine/internal/sources"
	"github.com/solairus-intel/feed-engine/internal/storage/sqlite"
	"github.com/solairus-intel/feed-engine/internal/synthesizer"
	"github.com/solairus-intel/feed-engine/pkg/config"
	appLogger "github.com/solairus-intel/feed-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting intelligence feed engine")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	narrativeClient := narrative.NewClient(cfg.Narrative)
	policyClient := policy.NewClient(cfg.Policy)
	econClient := econ.NewClient(cfg.Econ)

	adapters := map[feed.SourceType]sources.Adapter{
		feed.SourceNarrative:         sources.NewNarrativeAdapter(narrativeClient),
		feed.SourcePolicyEvent:       sources.NewPolicyAdapter(policyClient, cfg.Policy.LookbackDays),
		feed.SourceEconomicIndicator: sources.NewEconAdapter(econClient, cfg.Econ.LookbackDays),
	}

	var synth synthesizer.Synthesizer = synthesizer.NewTemplate()
	if cfg.Enrich.Enabled {
		synth = synthesizer.NewEnricher(synthesizer.NewTemplate(), narrativeClient)
		appLogger.Info("Model-backed synthesis enabled")
	}

	feedRunner := runner.New(cfg, adapters, synth, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware())

	runHandler := handlers.NewRunHandler(feedRunner)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Post("/runs", limiter.Middleware(), runHandler.TriggerRun)
	api.Get("/runs/latest", runHandler.GetLatestRun)
	api.Get("/runs/latest/sectors/:sector", runHandler.GetSectorFeed)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
