package entities

// Algorithm identifies one recommendation-generation strategy competing
// under the bandit.
type Algorithm string

const (
	AlgorithmContentBased  Algorithm = "content_based"
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmHybrid        Algorithm = "hybrid"
	AlgorithmTrending      Algorithm = "trending"
	AlgorithmSeasonal      Algorithm = "seasonal"
	AlgorithmAdventurous   Algorithm = "adventurous"
)

// AlgorithmRegistry returns the fixed, ordered set of algorithms. The order
// is load-bearing: initialization and tie-breaking both follow it.
func AlgorithmRegistry() []Algorithm {
	return []Algorithm{
		AlgorithmContentBased,
		AlgorithmCollaborative,
		AlgorithmHybrid,
		AlgorithmTrending,
		AlgorithmSeasonal,
		AlgorithmAdventurous,
	}
}

// IsValid checks if the algorithm is one of the registered strategies.
func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmContentBased, AlgorithmCollaborative, AlgorithmHybrid,
		AlgorithmTrending, AlgorithmSeasonal, AlgorithmAdventurous:
		return true
	}
	return false
}
