// Package ingest builds the contract knowledge base: it discovers contract
// documents on disk, chunks them, embeds the chunks, and loads them into
// the vector store. It can also watch the contract directory and re-index
// on change.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"guardian/internal/logging"
	"guardian/internal/store"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize bounds chunk length in runes. Small enough that a pair
// of chunks fits comfortably in a judgment prompt.
const DefaultChunkSize = 1000

// embedWorkers bounds concurrent AddChunk calls during a re-index.
const embedWorkers = 4

// Indexer populates a contract store from documents on disk.
type Indexer struct {
	Store     *store.ContractStore
	Dirs      []string
	ChunkSize int
}

// NewIndexer creates an indexer over the given candidate directories. The
// first directory that exists wins; the rest cover case variants of the
// same path.
func NewIndexer(s *store.ContractStore, dirs []string, chunkSize int) *Indexer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Indexer{Store: s, Dirs: dirs, ChunkSize: chunkSize}
}

// ResolveDir returns the first candidate directory that exists on disk.
func (ix *Indexer) ResolveDir() (string, bool) {
	for _, dir := range ix.Dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// Reindex clears the store and loads every contract document found in the
// resolved directory. Returns the number of chunks stored. A missing
// directory is not an error; the knowledge base is simply left empty.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Reindex")
	defer timer.Stop()

	dir, ok := ix.ResolveDir()
	if !ok {
		logging.Ingest("no contract directory found among %v", ix.Dirs)
		return 0, nil
	}

	files, err := contractFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan contract directory %s: %w", dir, err)
	}

	if err := ix.Store.Clear(); err != nil {
		return 0, fmt.Errorf("failed to clear contract store: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	total := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Ingest("skipping unreadable contract %s: %v", path, err)
			continue
		}

		source := filepath.Base(path)
		for _, chunk := range chunkRunes(string(data), ix.ChunkSize) {
			chunk := chunk
			total++
			g.Go(func() error {
				return ix.Store.AddChunk(gctx, source, chunk)
			})
		}
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to index contracts: %w", err)
	}

	logging.Ingest("indexed %d chunks from %d files in %s", total, len(files), dir)
	return total, nil
}

// contractFiles lists the contract documents in dir, sorted for stable
// ingest order.
func contractFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".md", ".txt":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// chunkRunes splits text into fixed-size rune chunks, dropping
// whitespace-only pieces.
func chunkRunes(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}
	rs := []rune(text)
	if len(rs) == 0 {
		return nil
	}

	out := make([]string, 0, (len(rs)/maxLen)+1)
	for i := 0; i < len(rs); i += maxLen {
		end := i + maxLen
		if end > len(rs) {
			end = len(rs)
		}
		chunk := string(rs[i:end])
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		out = append(out, chunk)
	}
	return out
}
