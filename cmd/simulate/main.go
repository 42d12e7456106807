package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/aromaiq/recommender-backend/internal/simulation"
)

func main() {
	rounds := flag.Int("rounds", 2000, "number of select-feedback cycles")
	seed := flag.Int64("seed", time.Now().UnixNano(), "RNG seed for reproducible runs")
	window := flag.Int("window", 0, "trailing rounds used to measure convergence (0 = final 10%)")
	flag.Parse()

	runner := simulation.NewRunner(simulation.Config{
		Rounds:            *rounds,
		Seed:              *seed,
		ConvergenceWindow: *window,
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	// Output results as JSON
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
