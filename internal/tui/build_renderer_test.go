package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_ReturnsNilForNonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf)

	r, err := NewTUIRenderer(cfg)

	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestBuildModel_InitialView(t *testing.T) {
	tracker := NewProgressTracker()
	model := newBuildModel(tracker, "")

	view := model.View()

	assert.Contains(t, view, "Ingest")
}

func TestBuildModel_StageIndicators(t *testing.T) {
	tracker := NewProgressTracker()
	model := newBuildModel(tracker, "")

	tracker.SetStage(StageIngesting, 100)
	view := model.View()

	assert.Contains(t, view, "Ingest")
	assert.Contains(t, view, "Compact")
}

func TestBuildModel_ProgressDisplay(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIngesting, 100)
	tracker.Update(50, "item:42")

	model := newBuildModel(tracker, "")

	view := model.View()

	assert.Contains(t, view, "50")
	assert.Contains(t, view, "100")
}

func TestBuildModel_RowLabelDisplay(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIngesting, 100)
	tracker.Update(1, "item:007")

	model := newBuildModel(tracker, "")

	view := model.View()

	assert.Contains(t, view, "item:007")
}

func TestBuildModel_ErrorDisplay(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.AddError(ErrorEvent{Source: "broken", Err: assert.AnError, IsWarn: false})
	tracker.AddError(ErrorEvent{Source: "warning", Err: assert.AnError, IsWarn: true})

	model := newBuildModel(tracker, "")

	view := model.View()

	assert.Contains(t, view, "1")
}

func TestBuildModel_CompletionState(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageComplete, 0)

	model := newBuildModel(tracker, "")
	model.complete = true
	model.stats = CompletionStats{
		Rows:  100,
		Pairs: 500,
	}

	view := model.View()

	assert.Contains(t, view, "Complete")
}

func TestTruncateLabel_Short(t *testing.T) {
	label := "item:42"

	result := truncateLabel(label, 50)

	assert.Equal(t, label, result)
}

func TestTruncateLabel_Long(t *testing.T) {
	label := "item:0000000000000000000000000000000000000042"

	result := truncateLabel(label, 30)

	assert.LessOrEqual(t, len(result), 30)
	assert.Contains(t, result, "...")
	assert.Contains(t, result, "42")
}

func TestTruncateLabel_Empty(t *testing.T) {
	result := truncateLabel("", 50)

	assert.Equal(t, "", result)
}

func TestTUIRenderer_InterfaceCompliance(t *testing.T) {
	var _ Renderer = (*TUIRenderer)(nil)
}
