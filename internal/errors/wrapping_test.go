package errors_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	bserrors "github.com/baysets/baysets/internal/errors"
)

// TestErrorWrapping_LoadError verifies a missing computed-index file produces
// a LoadError that names the file and category correctly.
func TestErrorWrapping_LoadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.fts")

	_, openErr := os.Open(path)
	if openErr == nil {
		t.Fatal("expected open of missing file to fail")
	}

	err := bserrors.LoadError("failed to open feature labels file", openErr).
		WithDetail("path", path)

	errMsg := err.Error()
	if !strings.Contains(errMsg, "feature labels") {
		t.Errorf("error should mention what failed to load, got: %s", errMsg)
	}
	if err.Category != bserrors.CategoryLoad {
		t.Errorf("expected CategoryLoad, got: %s", err.Category)
	}
	if err.Details["path"] != path {
		t.Errorf("expected detail path=%s, got: %s", path, err.Details["path"])
	}
	if err.Cause != openErr {
		t.Errorf("expected cause to be preserved")
	}
}

// TestErrorWrapping_BuildError verifies writer failures on a raw-index
// directory are wrapped with a build category and a file detail.
func TestErrorWrapping_BuildError(t *testing.T) {
	// A directory that does not exist cannot be opened for append.
	badPath := filepath.Join(t.TempDir(), "missing-subdir", "pairs.xco")

	f, openErr := os.OpenFile(badPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr == nil {
		f.Close()
		t.Fatal("expected open of file under missing directory to fail")
	}

	err := bserrors.BuildError("cannot open coordinate stream for append", openErr).
		WithDetail("file", "pairs.xco").
		WithSuggestion("Ensure the index directory exists before calling Open")

	if err.Category != bserrors.CategoryBuild {
		t.Errorf("expected CategoryBuild, got: %s", err.Category)
	}
	if err.Suggestion == "" {
		t.Error("expected a suggestion to be attached")
	}
	if !strings.Contains(err.Error(), "coordinate stream") {
		t.Errorf("error message should describe the failed operation, got: %s", err.Error())
	}
}

// TestErrorWrapping_IngestError verifies errors from a PairSource are
// wrapped with an ingest category rather than a generic internal one.
func TestErrorWrapping_IngestError(t *testing.T) {
	cause := os.ErrClosed

	err := bserrors.IngestError("pair source cursor read failed", cause)

	if err.Category != bserrors.CategoryIngest {
		t.Errorf("expected CategoryIngest, got: %s", err.Category)
	}
	if err.Cause != cause {
		t.Errorf("expected cause to be preserved")
	}
}
