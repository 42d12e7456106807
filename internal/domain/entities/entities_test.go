package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlgorithmRegistry_OrderIsFixed(t *testing.T) {
	want := []Algorithm{
		AlgorithmContentBased,
		AlgorithmCollaborative,
		AlgorithmHybrid,
		AlgorithmTrending,
		AlgorithmSeasonal,
		AlgorithmAdventurous,
	}
	assert.Equal(t, want, AlgorithmRegistry())
}

func TestAlgorithm_IsValid(t *testing.T) {
	for _, algorithm := range AlgorithmRegistry() {
		assert.True(t, algorithm.IsValid())
	}
	assert.False(t, Algorithm("random_forest").IsValid())
	assert.False(t, Algorithm("").IsValid())
}

func TestFeedbackAction_IsValid(t *testing.T) {
	valid := []FeedbackAction{
		ActionView, ActionClick, ActionAddToCollection, ActionRating,
		ActionPurchaseIntent, ActionSamplePurchase, ActionIgnore,
	}
	for _, action := range valid {
		assert.True(t, action.IsValid())
	}
	assert.False(t, FeedbackAction("purchase").IsValid())
}

func TestAlgorithmState_SuccessRate(t *testing.T) {
	state := NewDefaultState("user-1", AlgorithmHybrid, "ctx")
	assert.InDelta(t, 0.5, state.SuccessRate(), 1e-9)

	state.Alpha = 3
	state.Beta = 1
	assert.InDelta(t, 0.75, state.SuccessRate(), 1e-9)

	state.Alpha = 0
	state.Beta = 0
	assert.Equal(t, 0.0, state.SuccessRate())
}

func TestNewDefaultState_UniformPrior(t *testing.T) {
	state := NewDefaultState("user-1", AlgorithmTrending, "ctx")
	assert.Equal(t, 1.0, state.Alpha)
	assert.Equal(t, 1.0, state.Beta)
	assert.Equal(t, 0, state.TotalSelections)
	assert.Equal(t, AlgorithmTrending, state.Algorithm)
}

func TestContextualFactors_FieldsOmitsMissing(t *testing.T) {
	duration := 12.5
	factors := ContextualFactors{
		UserType:        "casual",
		SessionDuration: &duration,
	}

	fields := factors.Fields()
	assert.Equal(t, map[string]string{
		"user_type":        "casual",
		"session_duration": "12.5",
	}, fields)

	assert.Empty(t, ContextualFactors{}.Fields())
}
