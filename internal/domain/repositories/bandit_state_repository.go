package repositories

import (
	"context"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

// BanditStateRepository is the durable store for per-(user, algorithm,
// context) bandit state. Mutations are additive and commutative so naive
// concurrent access stays safe without locks: IncrementSelection and
// ApplyReward must be atomic at the store level, never application-side
// read-modify-write.
type BanditStateRepository interface {
	// GetStates returns all algorithm states for a (user, context) pair.
	// Empty result means the pair was never initialized.
	GetStates(ctx context.Context, userID, contextHash string) ([]*entities.AlgorithmState, error)

	// GetUserStates returns every state row for a user across contexts.
	GetUserStates(ctx context.Context, userID string) ([]*entities.AlgorithmState, error)

	// InitializeStates creates default-prior rows for every algorithm in
	// the registry. Idempotent: rows that already exist are left alone.
	InitializeStates(ctx context.Context, userID, contextHash string, registry []entities.Algorithm) error

	// IncrementSelection atomically bumps total_selections for one arm.
	IncrementSelection(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string) error

	// ApplyReward atomically applies alpha += reward, beta += 1-reward and
	// returns the updated state.
	ApplyReward(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string, reward float64) (*entities.AlgorithmState, error)

	// ApplyRewardBonus atomically applies alpha += bonus, beta -= bonus,
	// revising the original reward split without growing the total
	// evidence count. Callers keep the bonus below 1 so beta stays
	// positive.
	ApplyRewardBonus(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string, bonus float64) error
}
