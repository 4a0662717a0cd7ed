package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"guardian/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.ContractStore {
	t.Helper()
	s, err := store.NewContractStore(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeContract(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestChunkRunes(t *testing.T) {
	assert.Nil(t, chunkRunes("", 10))
	assert.Equal(t, []string{"hello"}, chunkRunes("hello", 10))
	assert.Equal(t, []string{"hello", " worl", "d"}, chunkRunes("hello world", 5))

	// Rune-based, not byte-based: multibyte text must not be split mid-rune.
	chunks := chunkRunes(strings.Repeat("契約", 8), 5)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c, "契") || strings.HasPrefix(c, "約"))
	}

	assert.Empty(t, chunkRunes("   \n  ", 3), "whitespace-only chunks are dropped")
}

func TestIndexerReindex(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "acme.md", "# Acme Contract\nWidgets cost 500 per unit.")
	writeContract(t, dir, "globex.txt", "Globex pays net 30.")
	writeContract(t, dir, "ignored.pdf", "binary")

	s := newTestStore(t)
	ix := NewIndexer(s, []string{dir}, 0)

	n, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Re-running replaces rather than accumulates.
	n, err = ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexerReindex_Chunking(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "big.md", strings.Repeat("clause ", 400)) // ~2800 runes

	s := newTestStore(t)
	ix := NewIndexer(s, []string{dir}, 1000)

	n, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIndexerReindex_MissingDir(t *testing.T) {
	s := newTestStore(t)
	ix := NewIndexer(s, []string{filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "also-nope")}, 0)

	n, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexerResolveDir_CaseVariants(t *testing.T) {
	base := t.TempDir()
	upper := filepath.Join(base, "Contracts")
	require.NoError(t, os.Mkdir(upper, 0755))

	ix := NewIndexer(nil, []string{filepath.Join(base, "contracts"), upper}, 0)
	dir, ok := ix.ResolveDir()
	require.True(t, ok)
	assert.Equal(t, upper, dir)
}

func TestIndexerWatch_ReindexesOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher test sleeps through the debounce window")
	}

	dir := t.TempDir()
	writeContract(t, dir, "acme.md", "Widgets cost 500.")

	s := newTestStore(t)
	ix := NewIndexer(s, []string{dir}, 0)
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx) }()

	// Give the watcher a moment to register before mutating the directory.
	time.Sleep(100 * time.Millisecond)
	writeContract(t, dir, "globex.md", "Globex pays net 30.")

	require.Eventually(t, func() bool {
		count, err := s.Count()
		return err == nil && count == 2
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
