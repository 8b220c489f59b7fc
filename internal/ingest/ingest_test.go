package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baysets/baysets/internal/rawindex"
)

func TestMemorySource_YieldsPairsInOrder(t *testing.T) {
	src := NewMemorySource([]Pair{
		{ItemID: 1, FeatureLabel: "a"},
		{ItemID: 2, FeatureLabel: "b"},
	})

	p1, ok, err := src.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{ItemID: 1, FeatureLabel: "a"}, p1)

	p2, ok, err := src.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{ItemID: 2, FeatureLabel: "b"}, p2)

	_, ok, err = src.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlatFileSource_ParsesLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 apple\n\n2 banana split\n"), 0o644))

	src, err := NewFlatFileSource(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	p1, ok, err := src.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{ItemID: 1, FeatureLabel: "apple"}, p1)

	p2, ok, err := src.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{ItemID: 2, FeatureLabel: "banana split"}, p2)

	_, ok, err = src.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlatFileSource_MalformedLine_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-enough-fields\n"), 0o644))

	src, err := NewFlatFileSource(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	_, _, err = src.Next(context.Background())
	assert.Error(t, err)
}

func TestDrain_FeedsBuilderFromSource(t *testing.T) {
	dir := t.TempDir()
	b, err := rawindex.Open(dir, nil)
	require.NoError(t, err)

	src := NewMemorySource([]Pair{
		{ItemID: 1, FeatureLabel: "a"},
		{ItemID: 1, FeatureLabel: "b"},
		{ItemID: 2, FeatureLabel: "a"},
	})

	require.NoError(t, Drain(context.Background(), src, b, nil))
	require.NoError(t, b.Close())

	info, err := os.Stat(filepath.Join(dir, "index.ids"))
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
