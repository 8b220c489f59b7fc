package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baysets/baysets/internal/config"
)

func buildTestIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	flatPath := writeFlatFile(t, dir, []string{
		"1 tag:scifi",
		"1 tag:classic",
		"2 tag:scifi",
		"3 tag:classic",
		"4 tag:scifi",
		"4 tag:classic",
	})

	rootCmd := NewRootCmd()
	rootCmd.SetOut(&nopWriter{})
	err := runBuild(context.Background(), rootCmd, dir, buildOptions{
		noTUI:        true,
		skipCheck:    true,
		source:       "flatfile",
		flatFilePath: flatPath,
	})
	require.NoError(t, err)
	return dir
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestParseItemIDs_ValidAndInvalid(t *testing.T) {
	ids, err := parseItemIDs([]string{"7", "3", "9"})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3, 9}, ids)

	_, err = parseItemIDs([]string{"not-a-number"})
	require.Error(t, err)
}

func TestRunQuery_Local_ReturnsRankedRows(t *testing.T) {
	dir := buildTestIndex(t)
	cfg := config.NewConfig()

	rows, err := runQuery(context.Background(), dir, cfg, []int64{1}, 0, true)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, 1, rows[0].Rank)

	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].LogScore, rows[i].LogScore)
	}
}

func TestRunQuery_NoDaemonRunning_FallsBackToLocal(t *testing.T) {
	dir := buildTestIndex(t)
	cfg := config.NewConfig()

	rows, err := runQuery(context.Background(), dir, cfg, []int64{1, 4}, 2, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), 2)
}

func TestRunBuild_DefaultMemorySource_NoPairsIndexIsEmpty(t *testing.T) {
	dir := t.TempDir()

	rootCmd := NewRootCmd()
	rootCmd.SetOut(&nopWriter{})
	err := runBuild(context.Background(), rootCmd, dir, buildOptions{
		noTUI:     true,
		skipCheck: true,
		source:    "memory",
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "index.ids"))
	assert.NoError(t, err)
}
