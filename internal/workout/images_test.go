package workout

import (
	"context"
	"sync"
	"testing"
	"time"

	"SafePlan/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExerciseKeys(t *testing.T) {
	keys := ExerciseKeys(*samplePlan())
	require.Len(t, keys, 4)
	assert.Equal(t, "p0-d0-e0", keys[0].Key)
	assert.Equal(t, "Agachamento", keys[0].Name)
	assert.Equal(t, "p0-d0-e1", keys[1].Key)
	assert.Equal(t, "p1-d0-e0", keys[2].Key)
	assert.Equal(t, "p1-d1-e0", keys[3].Key)
	assert.Equal(t, "Prancha", keys[3].Name)
}

func collect(t *testing.T, ai *fakeAI, plan database.WorkoutPlanResponse, skip map[string]bool) map[string]database.ExerciseImage {
	t.Helper()
	var mu sync.Mutex
	got := map[string]database.ExerciseImage{}
	err := FetchImages(context.Background(), ai, plan, ImageOptions{Concurrency: 2}, skip, func(img database.ExerciseImage) {
		mu.Lock()
		defer mu.Unlock()
		_, dup := got[img.Key]
		assert.False(t, dup, "key reported twice: %s", img.Key)
		got[img.Key] = img
	})
	require.NoError(t, err)
	return got
}

func TestFetchImagesDeduplicatesRepeatedExercises(t *testing.T) {
	ai := newFakeAI(samplePlan())
	got := collect(t, ai, *samplePlan(), nil)

	require.Len(t, got, 4)
	assert.Equal(t, 1, ai.calls("Agachamento"))
	assert.Equal(t, 3, ai.totalCalls())

	require.NotNil(t, got["p1-d0-e0"].Image)
	assert.Equal(t, *got["p0-d0-e0"].Image, *got["p1-d0-e0"].Image)
	assert.Equal(t, "Sentar numa cadeira", got["p1-d0-e0"].VisualCue)
}

func TestFetchImagesFailuresBecomeNilImages(t *testing.T) {
	ai := newFakeAI(samplePlan())
	ai.failImages["Ponte"] = true
	ai.noImage["Prancha"] = true

	got := collect(t, ai, *samplePlan(), nil)
	require.Len(t, got, 4)
	assert.Nil(t, got["p0-d0-e1"].Image)
	assert.Nil(t, got["p1-d1-e0"].Image)
	assert.NotNil(t, got["p0-d0-e0"].Image)
}

func TestFetchImagesSkipsKeys(t *testing.T) {
	ai := newFakeAI(samplePlan())
	got := collect(t, ai, *samplePlan(), map[string]bool{"p0-d0-e0": true, "p0-d0-e1": true})

	assert.Len(t, got, 2)
	assert.NotContains(t, got, "p0-d0-e0")
	assert.Equal(t, 0, ai.calls("Ponte"))
	// The squat is still needed for its phase 2 slot.
	assert.Equal(t, 1, ai.calls("Agachamento"))
}

func TestFetchImagesStopsOnCancel(t *testing.T) {
	ai := newFakeAI(samplePlan())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count int
	err := FetchImages(ctx, ai, *samplePlan(), ImageOptions{Concurrency: 1, MaxDelay: time.Hour}, nil, func(database.ExerciseImage) {
		count++
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
	assert.Zero(t, ai.totalCalls())
}

func TestFetchImagesEmptyPlan(t *testing.T) {
	ai := newFakeAI(samplePlan())
	err := FetchImages(context.Background(), ai, database.WorkoutPlanResponse{}, ImageOptions{}, nil, func(database.ExerciseImage) {
		t.Fatal("no exercises, no callbacks")
	})
	assert.NoError(t, err)
}
