package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFlatFile(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "pairs.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	return path
}

func TestRunBuild_FlatFileSource_ProducesComputedIndex(t *testing.T) {
	dir := t.TempDir()
	flatPath := writeFlatFile(t, dir, []string{
		"1 tag:scifi",
		"1 tag:classic",
		"2 tag:scifi",
		"3 tag:classic",
	})

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)

	err := runBuild(context.Background(), rootCmd, dir, buildOptions{
		noTUI:        true,
		skipCheck:    true,
		source:       "flatfile",
		flatFilePath: flatPath,
	})
	require.NoError(t, err)

	for _, name := range []string{"index.xco", "index.yco", "index.ids", "index.fts"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
	_, err = os.Stat(filepath.Join(dir, ".baysets.lock"))
	assert.True(t, os.IsNotExist(err), "lock file should be released after build")
}

func TestRunBuild_Force_ClearsExistingArtifacts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"index.xco", "index.yco", "index.ids", "index.fts"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0o644))
	}

	flatPath := writeFlatFile(t, dir, []string{"1 tag:a"})

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)

	err := runBuild(context.Background(), rootCmd, dir, buildOptions{
		noTUI:        true,
		skipCheck:    true,
		force:        true,
		source:       "flatfile",
		flatFilePath: flatPath,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "index.ids"))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))
}

func TestClearBuildArtifacts_RemovesAllFourFilesAndLock(t *testing.T) {
	dir := t.TempDir()
	names := []string{"index.xco", "index.yco", "index.ids", "index.fts", ".baysets.lock"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.NoError(t, clearBuildArtifacts(dir))

	for _, name := range names {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err))
	}
}

func TestRunBuild_UnknownSource_ReturnsError(t *testing.T) {
	dir := t.TempDir()

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)

	err := runBuild(context.Background(), rootCmd, dir, buildOptions{
		noTUI:     true,
		skipCheck: true,
		source:    "carrier-pigeon",
	})
	require.Error(t, err)
}
