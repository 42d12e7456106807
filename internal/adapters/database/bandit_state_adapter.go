package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

const stateColumns = `id, user_id, algorithm_name, context_hash, alpha, beta, total_selections, total_rewards, last_updated`

// BanditStateAdapter implements bandit state persistence in Postgres. All
// mutations are expressed as server-side additive updates so concurrent
// feedback events never lose each other's increments.
type BanditStateAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBanditStateAdapter creates a new bandit state adapter.
func NewBanditStateAdapter(client *postgres.Client) repositories.BanditStateRepository {
	return &BanditStateAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetStates returns all algorithm states for a (user, context) pair.
func (a *BanditStateAdapter) GetStates(ctx context.Context, userID, contextHash string) ([]*entities.AlgorithmState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM bandit_algorithm_states
		WHERE user_id = $1 AND context_hash = $2
	`
	return a.queryStates(ctx, query, userID, contextHash)
}

// GetUserStates returns every state row for a user across contexts.
func (a *BanditStateAdapter) GetUserStates(ctx context.Context, userID string) ([]*entities.AlgorithmState, error) {
	query := `
		SELECT ` + stateColumns + `
		FROM bandit_algorithm_states
		WHERE user_id = $1
	`
	return a.queryStates(ctx, query, userID)
}

// InitializeStates inserts default priors for every algorithm in the
// registry. ON CONFLICT DO NOTHING keeps it idempotent under racing first
// selections for the same (user, context).
func (a *BanditStateAdapter) InitializeStates(ctx context.Context, userID, contextHash string, registry []entities.Algorithm) error {
	if len(registry) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]goqu.Record, 0, len(registry))
	for _, algorithm := range registry {
		records = append(records, goqu.Record{
			"id":               uuid.New().String(),
			"user_id":          userID,
			"algorithm_name":   string(algorithm),
			"context_hash":     contextHash,
			"alpha":            1.0,
			"beta":             1.0,
			"total_selections": 0,
			"total_rewards":    0.0,
			"last_updated":     now,
		})
	}

	query, args, err := a.db.Insert("bandit_algorithm_states").
		Rows(records).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build state initialization query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPersistenceError("failed to initialize bandit states", err)
	}

	return nil
}

// IncrementSelection atomically bumps total_selections for one arm.
func (a *BanditStateAdapter) IncrementSelection(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string) error {
	query := `
		UPDATE bandit_algorithm_states
		SET total_selections = total_selections + 1,
		    last_updated = $4
		WHERE user_id = $1 AND algorithm_name = $2 AND context_hash = $3
	`

	result, err := a.client.DB().ExecContext(ctx, query, userID, string(algorithm), contextHash, time.Now().UTC())
	if err != nil {
		return apperrors.NewPersistenceError("failed to increment selection count", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return apperrors.NewUninitializedError("no bandit state for arm " + string(algorithm))
	}

	return nil
}

// ApplyReward applies the continuous Beta-Bernoulli update alpha += reward,
// beta += 1-reward in a single statement and returns the updated row.
func (a *BanditStateAdapter) ApplyReward(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string, reward float64) (*entities.AlgorithmState, error) {
	query := `
		UPDATE bandit_algorithm_states
		SET alpha = alpha + $4,
		    beta = beta + $5,
		    total_rewards = total_rewards + $4,
		    last_updated = $6
		WHERE user_id = $1 AND algorithm_name = $2 AND context_hash = $3
		RETURNING ` + stateColumns + `
	`

	row := a.client.DB().QueryRowContext(ctx, query,
		userID, string(algorithm), contextHash, reward, 1-reward, time.Now().UTC())

	state, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewUninitializedError("no bandit state for arm " + string(algorithm))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to apply reward", err)
	}

	return state, nil
}

// ApplyRewardBonus shifts delayed-bonus mass from beta to alpha, revising
// the original reward split without growing the total evidence count. The
// bonus cap keeps beta above its positivity check.
func (a *BanditStateAdapter) ApplyRewardBonus(ctx context.Context, userID string, algorithm entities.Algorithm, contextHash string, bonus float64) error {
	query := `
		UPDATE bandit_algorithm_states
		SET alpha = alpha + $4,
		    beta = beta - $4,
		    total_rewards = total_rewards + $4,
		    last_updated = $5
		WHERE user_id = $1 AND algorithm_name = $2 AND context_hash = $3
	`

	if _, err := a.client.DB().ExecContext(ctx, query,
		userID, string(algorithm), contextHash, bonus, time.Now().UTC()); err != nil {
		return apperrors.NewPersistenceError("failed to apply reward bonus", err)
	}

	return nil
}

func (a *BanditStateAdapter) queryStates(ctx context.Context, query string, args ...interface{}) ([]*entities.AlgorithmState, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to query bandit states", err)
	}
	defer rows.Close()

	var states []*entities.AlgorithmState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan bandit state", err)
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*entities.AlgorithmState, error) {
	s := &entities.AlgorithmState{}
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Algorithm,
		&s.ContextHash,
		&s.Alpha,
		&s.Beta,
		&s.TotalSelections,
		&s.TotalRewards,
		&s.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
