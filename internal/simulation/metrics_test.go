package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

func TestSelectionShare(t *testing.T) {
	picks := []entities.Algorithm{
		entities.AlgorithmHybrid,
		entities.AlgorithmHybrid,
		entities.AlgorithmTrending,
		entities.AlgorithmHybrid,
	}

	share := SelectionShare(picks)
	assert.InDelta(t, 0.75, share[entities.AlgorithmHybrid], 1e-9)
	assert.InDelta(t, 0.25, share[entities.AlgorithmTrending], 1e-9)

	assert.Empty(t, SelectionShare(nil))
}

func TestConvergenceShare_OnlyCountsFinalWindow(t *testing.T) {
	picks := []entities.Algorithm{
		entities.AlgorithmTrending,
		entities.AlgorithmTrending,
		entities.AlgorithmHybrid,
		entities.AlgorithmHybrid,
	}

	assert.InDelta(t, 1.0, ConvergenceShare(picks, entities.AlgorithmHybrid, 2), 1e-9)
	assert.InDelta(t, 0.5, ConvergenceShare(picks, entities.AlgorithmHybrid, 4), 1e-9)
	// Oversized or zero windows fall back to the whole run.
	assert.InDelta(t, 0.5, ConvergenceShare(picks, entities.AlgorithmHybrid, 100), 1e-9)
	assert.InDelta(t, 0.5, ConvergenceShare(picks, entities.AlgorithmHybrid, 0), 1e-9)
	assert.Equal(t, 0.0, ConvergenceShare(nil, entities.AlgorithmHybrid, 10))
}

func TestCumulativeRegret(t *testing.T) {
	truth := map[entities.Algorithm]float64{
		entities.AlgorithmHybrid:   0.6,
		entities.AlgorithmTrending: 0.4,
	}
	picks := []entities.Algorithm{
		entities.AlgorithmHybrid,
		entities.AlgorithmTrending,
		entities.AlgorithmTrending,
	}

	assert.InDelta(t, 0.4, CumulativeRegret(picks, truth), 1e-9)
	assert.Equal(t, 0.0, CumulativeRegret(nil, truth))
}

func TestBestArm(t *testing.T) {
	assert.Equal(t, entities.AlgorithmHybrid, BestArm(DefaultTruth()))

	truth := map[entities.Algorithm]float64{
		entities.AlgorithmSeasonal: 0.9,
		entities.AlgorithmHybrid:   0.1,
	}
	assert.Equal(t, entities.AlgorithmSeasonal, BestArm(truth))
}
