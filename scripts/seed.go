package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/adapters/database"
	"github.com/aromaiq/recommender-backend/internal/application/services"
	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/postgres"
	"github.com/aromaiq/recommender-backend/pkg/config"
	"github.com/aromaiq/recommender-backend/pkg/contexthash"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				bandit_performance_metrics,
				feedback_events,
				bandit_algorithm_states
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	stateRepo := database.NewBanditStateAdapter(pgClient)
	feedbackLog := database.NewFeedbackLogAdapter(pgClient)
	metricsRepo := database.NewMetricsAdapter(pgClient)

	processor := services.NewFeedbackProcessor(
		services.NewRewardCalculator(),
		stateRepo,
		feedbackLog,
		services.DefaultFeedbackProcessorConfig(),
	)

	rng := rand.New(rand.NewSource(42))

	// 1. Seed bandit states for a handful of demo users across two contexts
	users := []string{"demo-alice", "demo-bode", "demo-chiara"}
	contexts := []entities.ContextualFactors{
		{UserType: "enthusiast", TimeOfDay: "evening", Season: "winter"},
		{UserType: "casual", TimeOfDay: "morning", DeviceType: "mobile"},
	}

	for _, userID := range users {
		for _, factors := range contexts {
			hash := contexthash.Hash(factors)
			if err := stateRepo.InitializeStates(ctx, userID, hash, entities.AlgorithmRegistry()); err != nil {
				log.Printf("Failed to initialize states for %s: %v", userID, err)
			}
		}
	}
	log.Printf("Initialized bandit states for %d users", len(users))

	// 2. Replay a synthetic feedback history so posteriors diverge. Hybrid
	// and collaborative are set up as the stronger arms.
	quality := map[entities.Algorithm]float64{
		entities.AlgorithmContentBased:  0.35,
		entities.AlgorithmCollaborative: 0.55,
		entities.AlgorithmHybrid:        0.65,
		entities.AlgorithmTrending:      0.30,
		entities.AlgorithmSeasonal:      0.25,
		entities.AlgorithmAdventurous:   0.20,
	}

	seeded := 0
	for _, userID := range users {
		for _, factors := range contexts {
			for _, algorithm := range entities.AlgorithmRegistry() {
				for i := 0; i < 20; i++ {
					action := entities.ActionIgnore
					if rng.Float64() < quality[algorithm] {
						action = entities.ActionSamplePurchase
					}

					event := &entities.FeedbackEvent{
						ID:        uuid.New().String(),
						UserID:    userID,
						ContentID: uuid.New().String(),
						Algorithm: algorithm,
						Action:    action,
						Factors:   factors,
					}
					if _, err := processor.ProcessFeedback(ctx, event); err != nil {
						log.Printf("Failed to process seed event: %v", err)
						continue
					}
					seeded++
				}
			}
		}
	}
	log.Printf("Replayed %d feedback events", seeded)

	// 3. Record daily performance snapshots for the trend endpoint
	hash := contexthash.Hash(contexts[0])
	snapshots := 0
	for _, algorithm := range entities.AlgorithmRegistry() {
		rate := quality[algorithm]
		for day := 14; day >= 0; day-- {
			// Drift each series slightly upward over the window.
			drift := float64(14-day) * 0.005
			snapshot := &entities.PerformanceSnapshot{
				ID:          uuid.New().String(),
				Algorithm:   algorithm,
				ContextHash: hash,
				Period:      time.Now().UTC().AddDate(0, 0, -day),
				SuccessRate: rate + drift + (rng.Float64()-0.5)*0.02,
				SampleSize:  50 + rng.Intn(100),
			}
			if err := metricsRepo.RecordSnapshot(ctx, snapshot); err != nil {
				log.Printf("Failed to record snapshot: %v", err)
				continue
			}
			snapshots++
		}
	}
	log.Printf("Recorded %d performance snapshots", snapshots)

	log.Println("Seeding complete")
}
