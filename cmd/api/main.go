package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/aromaiq/recommender-backend/internal/adapters/cache"
	"github.com/aromaiq/recommender-backend/internal/adapters/database"
	"github.com/aromaiq/recommender-backend/internal/api/handlers"
	"github.com/aromaiq/recommender-backend/internal/api/routes"
	"github.com/aromaiq/recommender-backend/internal/application/services"
	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/providers"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/postgres"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/redis"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
	"github.com/aromaiq/recommender-backend/pkg/betadist"
	"github.com/aromaiq/recommender-backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			if err := runtime.Start(); err != nil {
				log.Printf("Warning: Failed to start runtime instrumentation: %v", err)
			}
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - velocity falls back to neutral and
		// feedback dedup degrades to store-level conflict handling
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize adapters
	stateRepo := database.NewBanditStateAdapter(pgClient)
	feedbackLog := database.NewFeedbackLogAdapter(pgClient)
	metricsRepo := database.NewMetricsAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	var activityProvider providers.ActivityProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		activityProvider = cache.NewActivityAdapter(redisClient)
	}

	// Initialize services
	sampler := betadist.New(nil)

	selectorCfg := services.ThompsonSelectorConfig{
		ExplorationBonus:  cfg.Bandit.ExplorationBonus,
		MinimumSelections: cfg.Bandit.MinimumSelections,
		FallbackAlgorithm: entities.Algorithm(cfg.Bandit.FallbackAlgorithm),
		FallbackEnabled:   cfg.Bandit.FallbackEnabled,
	}
	if !selectorCfg.FallbackAlgorithm.IsValid() {
		log.Printf("Warning: unknown fallback algorithm %q, using hybrid", cfg.Bandit.FallbackAlgorithm)
		selectorCfg.FallbackAlgorithm = entities.AlgorithmHybrid
	}

	thompsonSelector := services.NewThompsonSelector(stateRepo, sampler, selectorCfg)
	contextualSelector := services.NewContextualSelector(thompsonSelector, activityProvider)

	processorCfg := services.FeedbackProcessorConfig{
		ParallelBatch:   cfg.Bandit.BatchParallel,
		DelayedWindow:   cfg.Bandit.DelayedWindow,
		DecayHalfLife:   cfg.Bandit.DecayHalfLife,
		DelayedBonusCap: 0.5,
	}
	feedbackProcessor := services.NewFeedbackProcessor(
		services.NewRewardCalculator(),
		stateRepo,
		feedbackLog,
		processorCfg,
	)

	performanceTracker := services.NewPerformanceTracker(metricsRepo, stateRepo, betadist.New(nil))

	// Start the delayed-reward poller
	delayedRewards := services.NewDelayedRewardService(feedbackProcessor, cfg.Bandit.ReevaluateInterval)
	delayedRewards.Start(ctx)
	log.Printf("Delayed reward poller started (interval %s)", cfg.Bandit.ReevaluateInterval)

	// Initialize handlers
	selectionHandler := handlers.NewSelectionHandler(contextualSelector, metrics)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackProcessor, activityProvider, cacheProvider, metrics)
	performanceHandler := handlers.NewPerformanceHandler(performanceTracker)

	// Set up router
	router := routes.NewRouter(
		selectionHandler,
		feedbackHandler,
		performanceHandler,
		cacheProvider,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
