package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCompletion(t *testing.T) {
	now := time.Date(2025, 10, 4, 10, 0, 0, 0, time.UTC)

	t.Run("below threshold stays incomplete", func(t *testing.T) {
		p := NewParticipant(now)
		assert.False(t, p.EvaluateCompletion(CompletionThreshold-1, now))
		assert.False(t, p.Completed)
		assert.Nil(t, p.CompletedAt)
	})

	t.Run("reaching threshold completes exactly once", func(t *testing.T) {
		p := NewParticipant(now)
		completedAt := now.Add(30 * time.Minute)

		require.True(t, p.EvaluateCompletion(CompletionThreshold, completedAt))
		require.True(t, p.Completed)
		require.NotNil(t, p.CompletedAt)
		assert.Equal(t, completedAt, *p.CompletedAt)
	})

	t.Run("re-evaluation never moves the completion time", func(t *testing.T) {
		p := NewParticipant(now)
		first := now.Add(30 * time.Minute)
		later := now.Add(2 * time.Hour)

		require.True(t, p.EvaluateCompletion(CompletionThreshold, first))
		assert.False(t, p.EvaluateCompletion(CompletionThreshold+3, later))
		assert.Equal(t, first, *p.CompletedAt)
	})

	t.Run("count above threshold on first evaluation completes", func(t *testing.T) {
		p := NewParticipant(now)
		assert.True(t, p.EvaluateCompletion(CompletionThreshold+2, now))
	})
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0.0, ProgressPercentage(0))
	assert.Equal(t, 20.0, ProgressPercentage(1))
	assert.Equal(t, 60.0, ProgressPercentage(3))
	assert.Equal(t, 100.0, ProgressPercentage(5))
	// More visits than the target never reads above 100.
	assert.Equal(t, 100.0, ProgressPercentage(9))
}

func TestRemainingVisits(t *testing.T) {
	assert.Equal(t, CompletionThreshold, RemainingVisits(0))
	assert.Equal(t, 2, RemainingVisits(3))
	assert.Equal(t, 0, RemainingVisits(5))
	assert.Equal(t, 0, RemainingVisits(8))
}
