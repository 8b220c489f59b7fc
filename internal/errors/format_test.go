package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	// Given: a BaysetError
	err := New(ErrCodeFileMissing, "file 'index.xco' not found", nil)

	// When: formatting for user
	result := FormatForUser(err)

	// Then: contains message
	assert.Contains(t, result, "file 'index.xco' not found")
	// And: contains error code at end
	assert.Contains(t, result, "[ERR_201_FILE_MISSING]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	// Given: an error with suggestion
	err := New(ErrCodeBuildLocked, "raw index directory is locked", nil).
		WithSuggestion("Wait for the other builder to close, or remove the stale lock file")

	// When: formatting for user
	result := FormatForUser(err)

	// Then: contains suggestion
	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "stale lock file")
}

func TestFormatForUser_StandardError(t *testing.T) {
	// Given: a standard Go error
	err := errors.New("something went wrong")

	// When: formatting for user
	result := FormatForUser(err)

	// Then: shows generic message
	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	// When: formatting nil
	result := FormatForUser(nil)

	// Then: returns empty string
	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	// Given: a BaysetError with details
	err := New(ErrCodeFileMissing, "file not found", nil).
		WithDetail("path", "/data/index.fts").
		WithSuggestion("Check the index directory path")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	// And: contains expected fields
	assert.Equal(t, ErrCodeFileMissing, result["code"])
	assert.Equal(t, "file not found", result["message"])
	assert.Equal(t, string(CategoryLoad), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "Check the index directory path", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/data/index.fts", details["path"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	// Given: a standard error
	err := errors.New("generic error")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON with internal error code
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	// When: formatting nil
	data, err := FormatJSON(nil)

	// Then: returns empty result
	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	// Given: an error with cause
	cause := errors.New("underlying error")
	err := New(ErrCodeInternal, "operation failed", cause)

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: includes cause
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_FormatsError(t *testing.T) {
	// Given: a fatal error
	err := New(ErrCodeRowColMismatch, "row_ptr and col_idx counts disagree", nil).
		WithSuggestion("Rebuild the index with 'baysets build'")

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: contains error info
	assert.Contains(t, result, "row_ptr and col_idx counts disagree")
	assert.Contains(t, result, "ERR_202_ROW_COL_MISMATCH")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	// Given: a simple error
	err := New(ErrCodeFileMissing, "file not found", nil)

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: is concise
	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}

func TestFormatForLog_ReturnsAttributes(t *testing.T) {
	// Given: an error with details and a cause
	cause := errors.New("disk full")
	err := New(ErrCodeBuildIO, "failed to write coordinate stream", cause).
		WithDetail("file", "pairs.xco")

	// When: formatting for logging
	attrs := FormatForLog(err)

	// Then: contains structured fields
	assert.Equal(t, ErrCodeBuildIO, attrs["error_code"])
	assert.Equal(t, "failed to write coordinate stream", attrs["message"])
	assert.Equal(t, string(CategoryBuild), attrs["category"])
	assert.Equal(t, "disk full", attrs["cause"])
	assert.Equal(t, "pairs.xco", attrs["detail_file"])
}

func TestFormatForLog_NilError(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
}

func TestFormatForLog_StandardError(t *testing.T) {
	attrs := FormatForLog(errors.New("plain failure"))
	assert.Equal(t, "plain failure", attrs["error"])
}
