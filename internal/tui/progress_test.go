package tui

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressTracker(t *testing.T) {
	tracker := NewProgressTracker()

	stats := tracker.Stats()
	assert.Equal(t, StageIngesting, stats.Stage)
	assert.Equal(t, 0, stats.Current)
	assert.Equal(t, 0, stats.Total)
}

func TestProgressTracker_SetStage(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.SetStage(StageCompacting, 100)

	stats := tracker.Stats()
	assert.Equal(t, StageCompacting, stats.Stage)
	assert.Equal(t, 100, stats.Total)
	assert.Equal(t, 0, stats.Current)
}

func TestProgressTracker_Update(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageCompacting, 100)

	tracker.Update(50, "item:7")

	stats := tracker.Stats()
	assert.Equal(t, 50, stats.Current)
	assert.Equal(t, "item:7", stats.RowLabel)
}

func TestProgressTracker_Progress_Percentage(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		expected float64
	}{
		{"zero total", 0, 0, 0.0},
		{"zero current", 0, 100, 0.0},
		{"half done", 50, 100, 0.5},
		{"complete", 100, 100, 1.0},
		{"over 100%", 150, 100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewProgressTracker()
			tracker.SetStage(StageIngesting, tt.total)
			tracker.Update(tt.current, "")

			assert.InDelta(t, tt.expected, tracker.Progress(), 0.01)
		})
	}
}

func TestProgressTracker_AddError(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.AddError(ErrorEvent{Source: "pairs.csv:1", Err: assert.AnError, IsWarn: false})

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 0, stats.WarnCount)

	tracker.AddError(ErrorEvent{Source: "pairs.csv:2", Err: assert.AnError, IsWarn: true})

	stats = tracker.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
}

func TestProgressTracker_ETA_ZeroProgress(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIngesting, 100)

	eta := tracker.ETA()

	assert.Equal(t, time.Duration(0), eta)
}

func TestProgressTracker_ETA_PartialProgress(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIngesting, 100)

	time.Sleep(50 * time.Millisecond)
	tracker.Update(50, "item:1")

	eta := tracker.ETA()

	assert.True(t, eta >= 0, "ETA should be non-negative")
	assert.True(t, eta < 500*time.Millisecond, "ETA should be reasonable")
}

func TestProgressTracker_ThreadSafety(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIngesting, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracker.Update(n, "item")
			tracker.Progress()
			tracker.Stats()
		}(i)
	}
	wg.Wait()

	stats := tracker.Stats()
	require.NotNil(t, stats)
}

func TestProgressTracker_StageTransition(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.SetStage(StageIngesting, 100)
	tracker.Update(100, "last")
	assert.Equal(t, StageIngesting, tracker.Stats().Stage)

	tracker.SetStage(StageCompacting, 500)
	assert.Equal(t, StageCompacting, tracker.Stats().Stage)
	assert.Equal(t, 0, tracker.Stats().Current)
	assert.Equal(t, 500, tracker.Stats().Total)

	tracker.Update(500, "")
	assert.Equal(t, StageCompacting, tracker.Stats().Stage)

	tracker.SetStage(StageComplete, 0)
	assert.Equal(t, StageComplete, tracker.Stats().Stage)
}

func TestProgressTracker_ElapsedTime(t *testing.T) {
	tracker := NewProgressTracker()

	time.Sleep(10 * time.Millisecond)

	elapsed := tracker.Elapsed()
	assert.True(t, elapsed >= 10*time.Millisecond)
}

func TestProgressStats_Fields(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageCompacting, 200)
	tracker.Update(100, "item:current")
	tracker.AddError(ErrorEvent{Source: "err", Err: assert.AnError, IsWarn: false})
	tracker.AddError(ErrorEvent{Source: "warn", Err: assert.AnError, IsWarn: true})

	stats := tracker.Stats()

	assert.Equal(t, StageCompacting, stats.Stage)
	assert.Equal(t, 100, stats.Current)
	assert.Equal(t, 200, stats.Total)
	assert.InDelta(t, 0.5, stats.Progress, 0.01)
	assert.Equal(t, "item:current", stats.RowLabel)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
}
