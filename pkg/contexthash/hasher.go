// Package contexthash turns a contextual-factor record into a fixed-width
// key used to partition bandit state by situation.
package contexthash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

// HashLength is the hex-prefix width of a context hash. 16 hex chars (64
// bits) keeps collision risk negligible for the state space involved.
const HashLength = 16

// defaultContext is the canonical string hashed when no factors are set.
const defaultContext = "default"

// Hash computes a deterministic, order-independent digest of the present
// factors. Two records with the same key/value pairs always hash
// identically regardless of how they were populated.
func Hash(factors entities.ContextualFactors) string {
	fields := factors.Fields()
	if len(fields) == 0 {
		return digest(defaultContext)
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+":"+fields[key])
	}

	return digest(strings.Join(parts, "|"))
}

func digest(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:HashLength]
}
