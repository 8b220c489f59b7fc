package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:    StageIngesting,
		Current:  50,
		Total:    100,
		RowLabel: "item:7",
	})

	output := buf.String()
	assert.Contains(t, output, "[INGEST]")
	assert.Contains(t, output, "50/100")
	assert.Contains(t, output, "item:7")
}

func TestPlainRenderer_UpdateProgress_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	stages := []Stage{StageIngesting, StageCompacting, StageComplete}
	for _, stage := range stages {
		r.UpdateProgress(ProgressEvent{
			Stage:   stage,
			Current: 50,
			Total:   100,
			Message: "Processing...",
		})
	}

	output := buf.String()
	assert.NotContains(t, output, "\x1b[", "should not contain ANSI escape codes")
	assert.NotContains(t, output, "\033[", "should not contain ANSI escape codes")
}

func TestPlainRenderer_UpdateProgress_WithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:   StageCompacting,
		Current: 100,
		Total:   200,
		Message: "Sorting rows...",
	})

	output := buf.String()
	assert.Contains(t, output, "[COMPACT]")
	assert.Contains(t, output, "Sorting rows...")
}

func TestPlainRenderer_UpdateProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{
		Stage:   StageIngesting,
		Total:   0,
		Message: "Reading pair source...",
	})

	output := buf.String()
	assert.Contains(t, output, "[INGEST]")
	assert.Contains(t, output, "Reading pair source...")
	assert.NotContains(t, output, "0/0")
}

func TestPlainRenderer_AddError_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		Source: "pairs.csv:42",
		Err:    errors.New("malformed pair"),
		IsWarn: false,
	})

	output := buf.String()
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "pairs.csv:42")
	assert.Contains(t, output, "malformed pair")
}

func TestPlainRenderer_AddError_Warning(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		Source: "pairs.csv:99",
		Err:    errors.New("duplicate pair skipped"),
		IsWarn: true,
	})

	output := buf.String()
	assert.Contains(t, output, "WARN:")
	assert.Contains(t, output, "pairs.csv:99")
	assert.Contains(t, output, "duplicate pair skipped")
}

func TestPlainRenderer_AddError_NoSource(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{
		Err:    errors.New("connection failed"),
		IsWarn: false,
	})

	output := buf.String()
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "connection failed")
}

func TestPlainRenderer_Complete_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Rows:     100,
		Pairs:    500,
		Duration: 5 * time.Second,
	})

	output := buf.String()
	assert.Contains(t, output, "Complete:")
	assert.Contains(t, output, "100 rows")
	assert.Contains(t, output, "500 pairs")
	assert.Contains(t, output, "5s")
}

func TestPlainRenderer_Complete_WithErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Rows:     95,
		Pairs:    450,
		Duration: 10 * time.Second,
		Errors:   3,
		Warnings: 2,
	})

	output := buf.String()
	assert.Contains(t, output, "95 rows")
	assert.Contains(t, output, "3 errors")
	assert.Contains(t, output, "2 warnings")
}

func TestPlainRenderer_Complete_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Rows:     100,
		Pairs:    500,
		Duration: 5 * time.Second,
		Errors:   2,
		Warnings: 1,
	})

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestPlainRenderer_StartStop(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Stop())
}

func TestPlainRenderer_ThreadSafe(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(n int) {
			r.UpdateProgress(ProgressEvent{Stage: StageIngesting, Current: n, Total: 100})
			r.AddError(ErrorEvent{Source: "test", Err: errors.New("test"), IsWarn: n%2 == 0})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.NotEmpty(t, buf.String())
}

func TestPlainRenderer_AllStages(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	stages := []struct {
		stage Stage
		icon  string
	}{
		{StageIngesting, "INGEST"},
		{StageCompacting, "COMPACT"},
	}

	for _, s := range stages {
		r.UpdateProgress(ProgressEvent{Stage: s.stage, Current: 50, Total: 100})
	}

	output := buf.String()
	for _, s := range stages {
		assert.Contains(t, output, "["+s.icon+"]")
	}
}

func TestPlainRenderer_LongRowLabel(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	longLabel := strings.Repeat("item-", 20) + "42"
	r.UpdateProgress(ProgressEvent{
		Stage:    StageIngesting,
		Current:  1,
		Total:    10,
		RowLabel: longLabel,
	})

	output := buf.String()
	assert.Contains(t, output, "42")
}
