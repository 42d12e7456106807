package simulation

import "github.com/aromaiq/recommender-backend/internal/domain/entities"

// SelectionShare returns the fraction of picks each algorithm received.
func SelectionShare(picks []entities.Algorithm) map[entities.Algorithm]float64 {
	share := make(map[entities.Algorithm]float64)
	if len(picks) == 0 {
		return share
	}
	for _, pick := range picks {
		share[pick]++
	}
	for algorithm := range share {
		share[algorithm] /= float64(len(picks))
	}
	return share
}

// ConvergenceShare returns the fraction of the final window of picks that
// went to the best arm. It answers whether the policy settled, not merely
// whether it ever found the best arm.
func ConvergenceShare(picks []entities.Algorithm, best entities.Algorithm, window int) float64 {
	if len(picks) == 0 {
		return 0
	}
	if window <= 0 || window > len(picks) {
		window = len(picks)
	}

	hits := 0
	for _, pick := range picks[len(picks)-window:] {
		if pick == best {
			hits++
		}
	}
	return float64(hits) / float64(window)
}

// CumulativeRegret sums, over the picks, the gap between the best arm's
// true success probability and the chosen arm's.
func CumulativeRegret(picks []entities.Algorithm, truth map[entities.Algorithm]float64) float64 {
	best := 0.0
	for _, probability := range truth {
		if probability > best {
			best = probability
		}
	}

	regret := 0.0
	for _, pick := range picks {
		regret += best - truth[pick]
	}
	return regret
}

// BestArm returns the algorithm with the highest true success probability.
func BestArm(truth map[entities.Algorithm]float64) entities.Algorithm {
	var best entities.Algorithm
	bestProbability := -1.0
	for _, algorithm := range entities.AlgorithmRegistry() {
		if probability, ok := truth[algorithm]; ok && probability > bestProbability {
			best = algorithm
			bestProbability = probability
		}
	}
	return best
}
