package tui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsInfo_Zero(t *testing.T) {
	info := StatsInfo{}

	assert.Empty(t, info.IndexDir)
	assert.Equal(t, 0, info.Rows)
	assert.Equal(t, 0, info.Features)
	assert.True(t, info.BuiltAt.IsZero())
}

func TestStatsInfo_JSONSerialization(t *testing.T) {
	info := StatsInfo{
		IndexDir:          "/data/idx",
		Rows:              100,
		Features:          500,
		NNZ:               1200,
		AverageRowDensity: 12,
		BuiltAt:           time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		IDsSize:           1024 * 1024,
		FeatsSize:         2 * 1024 * 1024,
		XCOSize:           10 * 1024 * 1024,
		YCOSize:           10 * 1024 * 1024,
		TotalSize:         23 * 1024 * 1024,
		DaemonStatus:      "running",
	}

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "/data/idx", parsed["index_dir"])
	assert.Equal(t, float64(100), parsed["rows"])
	assert.Equal(t, float64(500), parsed["features"])
	assert.Equal(t, "running", parsed["daemon_status"])
}

func TestStatsRenderer_Render_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, false)

	info := StatsInfo{
		IndexDir:          "my-index",
		Rows:              50,
		Features:          250,
		NNZ:               300,
		AverageRowDensity: 6,
		BuiltAt:           time.Now(),
		IDsSize:           512 * 1024,
		FeatsSize:         1024 * 1024,
		XCOSize:           5 * 1024 * 1024,
		YCOSize:           5 * 1024 * 1024,
		TotalSize:         11*1024*1024 + 512*1024,
		DaemonStatus:      "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "my-index")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "250")
	assert.Contains(t, output, "stopped")
}

func TestStatsRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, false)

	info := StatsInfo{
		IndexDir: "json-index",
		Rows:     25,
		Features: 100,
	}

	err := r.RenderJSON(info)
	require.NoError(t, err)

	var parsed StatsInfo
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "json-index", parsed.IndexDir)
	assert.Equal(t, 25, parsed.Rows)
}

func TestStatsRenderer_NoColor(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, true)

	info := StatsInfo{
		IndexDir:     "nocolor-index",
		DaemonStatus: "running",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestStatsRenderer_DaemonStopped(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, false)

	info := StatsInfo{
		IndexDir:     "stopped-index",
		DaemonStatus: "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "stopped")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatBytes(tt.bytes)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatsRenderer_StorageSizes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatsRenderer(buf, true)

	info := StatsInfo{
		IndexDir:  "storage-index",
		IDsSize:   512 * 1024,
		FeatsSize: 2 * 1024 * 1024,
		XCOSize:   10 * 1024 * 1024,
		YCOSize:   10 * 1024 * 1024,
		TotalSize: 22*1024*1024 + 512*1024,
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "KB")
	assert.Contains(t, output, "MB")
}
