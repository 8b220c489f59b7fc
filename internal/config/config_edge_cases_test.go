package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions for JSON marshaling tests
func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Edge Case Tests - These test scenarios that could cause silent failures
// or unexpected behavior around merge semantics, validation, and file
// permissions.

// =============================================================================
// Config Merge Edge Cases
// =============================================================================

// TestLoad_ZeroValuesNotMerged tests that explicit zero values in config
// don't override defaults (documents a known "can't set to zero" limitation
// of the non-zero-value merge strategy).
func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	// Given: config with explicit zero values for numeric fields
	tmpDir := t.TempDir()
	configContent := `
version: 1
query:
  top_k_default: 0
  max_explain_terms: 0
performance:
  build_workers: 0
`
	err := os.WriteFile(filepath.Join(tmpDir, ".baysets.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: defaults are kept (zero values don't override)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Query.TopKDefault, "Zero should not override default top_k_default")
	assert.NotZero(t, cfg.Performance.BuildWorkers, "Zero should not override default build_workers")
}

// TestLoad_NegativeSmoothingC_Validated tests that a non-positive smoothing
// constant is rejected by validation.
func TestLoad_NegativeSmoothingC_Validated(t *testing.T) {
	// Given: config with a negative smoothing_c
	tmpDir := t.TempDir()
	configContent := `
version: 1
model:
  smoothing_c: -1
`
	err := os.WriteFile(filepath.Join(tmpDir, ".baysets.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: validation error is returned
	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "smoothing_c must be positive")
}

// TestValidate_UnknownAttributionMode_Rejected tests that an unrecognized
// attribution mode string fails validation.
func TestValidate_UnknownAttributionMode_Rejected(t *testing.T) {
	// Given: a config with a bogus attribution mode
	cfg := NewConfig()
	cfg.Query.AttributionMode = "sometimes"

	// When: validating the configuration
	err := cfg.Validate()

	// Then: validation error is returned
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribution_mode")
}

// TestValidate_NegativeMaxExplainTerms_Rejected tests that a negative
// max_explain_terms fails validation.
func TestValidate_NegativeMaxExplainTerms_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Query.MaxExplainTerms = -5

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_explain_terms must be non-negative")
}

// TestValidate_SqliteSourceWithoutDSN_Rejected tests that selecting the
// sqlite ingest source without a DSN fails validation.
func TestValidate_SqliteSourceWithoutDSN_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Ingest.Source = "sqlite"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite_dsn is required")
}

// TestValidate_FlatfileSourceWithoutPath_Rejected tests that selecting the
// flatfile ingest source without a path fails validation.
func TestValidate_FlatfileSourceWithoutPath_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Ingest.Source = "flatfile"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat_file_path is required")
}

// TestValidate_UnknownIngestSource_Rejected tests that an unrecognized
// ingest source string fails validation.
func TestValidate_UnknownIngestSource_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Ingest.Source = "carrier-pigeon"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.source must be")
}

// TestValidate_UnknownMCPTransport_Rejected tests that an unrecognized MCP
// transport string fails validation.
func TestValidate_UnknownMCPTransport_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.MCP.Transport = "websocket"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp.transport must be")
}

// TestValidate_UnknownLogLevel_Rejected tests that an unrecognized log
// level string fails validation.
func TestValidate_UnknownLogLevel_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level must be")
}

// TestValidate_ZeroMaxIndexes_Rejected tests that a non-positive cache size
// fails validation.
func TestValidate_ZeroMaxIndexes_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Cache.MaxIndexes = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.max_indexes must be positive")
}

// =============================================================================
// Config File Permission Edge Cases
// =============================================================================

// TestLoad_UnreadableConfigFile_ReturnsError tests that unreadable config
// files return an error.
func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	// Given: a config file with no read permissions
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".baysets.yaml")
	err := os.WriteFile(configPath, []byte("version: 1"), 0o000)
	require.NoError(t, err)
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: error should be returned
	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

// =============================================================================
// MergeNewDefaults Edge Cases
// =============================================================================

// TestMergeNewDefaults_BackfillsZeroFields tests that a config loaded from
// an older, partial file gets missing fields backfilled from current
// defaults without disturbing fields already set.
func TestMergeNewDefaults_BackfillsZeroFields(t *testing.T) {
	// Given: a config missing several fields (as if loaded from an older file)
	cfg := &Config{
		Version: 1,
		Model:   ModelConfig{SmoothingC: 3.5},
	}

	// When: merging new defaults
	added := cfg.MergeNewDefaults()

	// Then: the set field survives, the missing ones are backfilled
	assert.Equal(t, 3.5, cfg.Model.SmoothingC)
	assert.Equal(t, 50_000, cfg.Model.ParallelRowThreshold)
	assert.Equal(t, 20, cfg.Query.TopKDefault)
	assert.Equal(t, AttributionPresentOnly, cfg.Query.AttributionMode)
	assert.Equal(t, 8, cfg.Cache.MaxIndexes)
	assert.Contains(t, added, "model.parallel_row_threshold")
	assert.Contains(t, added, "query.top_k_default")
	assert.NotContains(t, added, "model.smoothing_c")
}

// TestMergeNewDefaults_NoOpWhenFullyPopulated tests that MergeNewDefaults
// reports nothing added for an already-complete config.
func TestMergeNewDefaults_NoOpWhenFullyPopulated(t *testing.T) {
	cfg := NewConfig()

	added := cfg.MergeNewDefaults()

	assert.Empty(t, added)
}

// =============================================================================
// Config JSON Marshaling Edge Cases
// =============================================================================

// TestConfig_JSON_RoundTrip tests that config can be marshaled to JSON
// and back without data loss.
func TestConfig_JSON_RoundTrip(t *testing.T) {
	// Given: a configuration with custom values
	cfg := NewConfig()
	cfg.Model.SmoothingC = 3.25
	cfg.Query.TopKDefault = 50
	cfg.Query.AttributionMode = AttributionIncludeAbsent
	cfg.Ingest.Source = "sqlite"
	cfg.Ingest.SQLiteDSN = "file:test.db"

	// When: marshaling to JSON and back
	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	var parsed Config
	err = jsonUnmarshal(data, &parsed)
	require.NoError(t, err)

	// Then: all values are preserved
	assert.Equal(t, 3.25, parsed.Model.SmoothingC)
	assert.Equal(t, 50, parsed.Query.TopKDefault)
	assert.Equal(t, AttributionIncludeAbsent, parsed.Query.AttributionMode)
	assert.Equal(t, "sqlite", parsed.Ingest.Source)
	assert.Equal(t, "file:test.db", parsed.Ingest.SQLiteDSN)
}

// TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError tests that invalid JSON
// returns an error.
func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	// Given: invalid JSON
	invalidJSON := []byte("{invalid json")

	// When: unmarshaling
	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	// Then: error is returned
	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}

// =============================================================================
// Daemon Path Defaults
// =============================================================================

// TestNewConfig_DaemonSocketPath_UsesHomeDir tests that the daemon socket
// path defaults to a path under the baysets home directory.
func TestNewConfig_DaemonSocketPath_UsesHomeDir(t *testing.T) {
	cfg := NewConfig()

	assert.NotEmpty(t, cfg.Daemon.SocketPath)
	assert.Contains(t, cfg.Daemon.SocketPath, ".baysets")
	assert.Contains(t, cfg.Daemon.SocketPath, "daemon.sock")
}

// TestNewConfig_LogFilePath_UsesHomeDir tests that the default log file path
// sits under the baysets home directory's logs subdirectory.
func TestNewConfig_LogFilePath_UsesHomeDir(t *testing.T) {
	cfg := NewConfig()

	assert.NotEmpty(t, cfg.Logging.FilePath)
	assert.Contains(t, cfg.Logging.FilePath, "logs")
	assert.Contains(t, cfg.Logging.FilePath, "daemon.log")
}
