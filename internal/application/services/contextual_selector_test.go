package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSelectAlgorithmWithContext_EnrichesMissingFactors(t *testing.T) {
	store := newFakeStateStore()
	activity := &fakeActivityProvider{velocity: 0.7}

	selector := NewContextualSelector(newTestSelector(store, 1, DefaultThompsonSelectorConfig()), activity)
	selector.now = fixedClock(time.Date(2026, time.January, 10, 19, 0, 0, 0, time.UTC))

	selection, err := selector.SelectAlgorithmWithContext(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	assert.Equal(t, "evening", selection.Factors.TimeOfDay)
	assert.Equal(t, "winter", selection.Factors.Season)
	require.NotNil(t, selection.Factors.InteractionVelocity)
	assert.Equal(t, 0.7, *selection.Factors.InteractionVelocity)
}

func TestSelectAlgorithmWithContext_KeepsProvidedFactors(t *testing.T) {
	store := newFakeStateStore()
	activity := &fakeActivityProvider{velocity: 0.7}

	selector := NewContextualSelector(newTestSelector(store, 2, DefaultThompsonSelectorConfig()), activity)
	selector.now = fixedClock(time.Date(2026, time.July, 10, 8, 0, 0, 0, time.UTC))

	given := entities.ContextualFactors{
		TimeOfDay:           "night",
		Season:              "winter",
		InteractionVelocity: floatPtr(0.2),
	}
	selection, err := selector.SelectAlgorithmWithContext(context.Background(), "user-1", given)
	require.NoError(t, err)

	assert.Equal(t, "night", selection.Factors.TimeOfDay)
	assert.Equal(t, "winter", selection.Factors.Season)
	assert.Equal(t, 0.2, *selection.Factors.InteractionVelocity)
}

func TestSelectAlgorithmWithContext_NeutralVelocityWithoutProvider(t *testing.T) {
	store := newFakeStateStore()

	selector := NewContextualSelector(newTestSelector(store, 3, DefaultThompsonSelectorConfig()), nil)
	selection, err := selector.SelectAlgorithmWithContext(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	require.NotNil(t, selection.Factors.InteractionVelocity)
	assert.Equal(t, defaultVelocity, *selection.Factors.InteractionVelocity)
}

func TestSelectAlgorithmWithContext_NeutralVelocityOnProviderError(t *testing.T) {
	store := newFakeStateStore()
	activity := &fakeActivityProvider{err: errors.New("redis down")}

	selector := NewContextualSelector(newTestSelector(store, 4, DefaultThompsonSelectorConfig()), activity)
	selection, err := selector.SelectAlgorithmWithContext(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	require.NotNil(t, selection.Factors.InteractionVelocity)
	assert.Equal(t, defaultVelocity, *selection.Factors.InteractionVelocity)
}

func TestSelectAlgorithmWithContext_ConfidenceScaledByCompleteness(t *testing.T) {
	// All arms hold the uniform prior, so the raw confidence is exactly 0.5
	// and the multiplier is observable directly.
	duration := 12.0
	full := entities.ContextualFactors{
		UserType:        "enthusiast",
		TimeOfDay:       "evening",
		Season:          "winter",
		DeviceType:      "mobile",
		SessionDuration: &duration,
		MoodIndicators:  "relaxed",
	}

	store := newFakeStateStore()
	selector := NewContextualSelector(newTestSelector(store, 5, DefaultThompsonSelectorConfig()), nil)
	selector.now = fixedClock(time.Date(2026, time.January, 10, 19, 0, 0, 0, time.UTC))

	selection, err := selector.SelectAlgorithmWithContext(context.Background(), "user-1", full)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, selection.Confidence, 1e-9)

	// Enrichment alone supplies time_of_day and season, weighted 0.4 of
	// 1.0, so the multiplier is 0.5 + 0.5*0.4 = 0.7.
	selection, err = selector.SelectAlgorithmWithContext(context.Background(), "user-2", entities.ContextualFactors{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.7, selection.Confidence, 1e-9)
}

func TestCompletenessScore_Bounds(t *testing.T) {
	assert.InDelta(t, 0.5, completenessScore(entities.ContextualFactors{}), 1e-9)

	duration := 10.0
	full := entities.ContextualFactors{
		UserType:        "casual",
		TimeOfDay:       "morning",
		Season:          "spring",
		DeviceType:      "desktop",
		SessionDuration: &duration,
		MoodIndicators:  "curious",
	}
	assert.InDelta(t, 1.0, completenessScore(full), 1e-9)
}

func TestTimeOfDayBuckets(t *testing.T) {
	cases := map[int]string{
		0: "night", 4: "night", 5: "morning", 11: "morning",
		12: "afternoon", 16: "afternoon", 17: "evening", 21: "evening",
		22: "night", 23: "night",
	}
	for hour, want := range cases {
		assert.Equal(t, want, timeOfDay(hour), "hour %d", hour)
	}
}

func TestSeasonMapping(t *testing.T) {
	cases := map[time.Month]string{
		time.January: "winter", time.February: "winter", time.December: "winter",
		time.March: "spring", time.May: "spring",
		time.June: "summer", time.August: "summer",
		time.September: "autumn", time.November: "autumn",
	}
	for month, want := range cases {
		assert.Equal(t, want, season(month), "month %s", month)
	}
}
