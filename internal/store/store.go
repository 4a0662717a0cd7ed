// Package store implements the contract knowledge base: a SQLite-backed
// vector store over contract text chunks used for audit context retrieval.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"guardian/internal/embedding"
	"guardian/internal/logging"
)

// ContractStore holds embedded contract chunks and answers similarity
// queries against them.
type ContractStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	dbPath    string
	engine    embedding.Engine // optional; keyword fallback without it
	vectorExt bool             // sqlite-vec loaded (see init_vec.go)
}

// Chunk is one stored contract fragment.
type Chunk struct {
	ID      int64
	Source  string
	Content string
}

// NewContractStore initializes the SQLite database at the given path.
// Use ":memory:" for an ephemeral store.
func NewContractStore(path string) (*ContractStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewContractStore")
	defer timer.Stop()

	logging.Store("Initializing contract store at %s", path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &ContractStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Probe for the sqlite-vec extension; registered only under the
	// sqlite_vec build tag.
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err == nil {
		s.vectorExt = true
		logging.Store("sqlite-vec extension available: %s", vecVersion)
	}

	return s, nil
}

func (s *ContractStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contract_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_contract_chunks_source ON contract_chunks(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SetEmbeddingEngine configures the embedding engine for this store.
// Without one, AddChunk stores text only and search degrades to keyword match.
func (s *ContractStore) SetEmbeddingEngine(engine embedding.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = engine
}

// AddChunk stores one contract fragment, embedding it when an engine is set.
func (s *ContractStore) AddChunk(ctx context.Context, source, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		_, err := s.db.Exec(
			"INSERT INTO contract_chunks (source, content) VALUES (?, ?)",
			source, content,
		)
		return err
	}

	vec, err := s.engine.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO contract_chunks (source, content, embedding) VALUES (?, ?, ?)",
		source, content, string(vecJSON),
	)
	return err
}

// SimilaritySearch returns the content of the k chunks most similar to the
// query. With an embedding engine it ranks by cosine similarity (delegated
// to sqlite-vec when the extension is loaded); without one it falls back to
// keyword matching.
func (s *ContractStore) SimilaritySearch(ctx context.Context, query string, k int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 2
	}

	if s.engine == nil {
		return s.keywordSearch(query, k)
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if s.vectorExt {
		return s.vecSearch(queryVec, k)
	}
	return s.cosineSearch(queryVec, k)
}

// vecSearch ranks chunks inside SQLite via the sqlite-vec extension.
func (s *ContractStore) vecSearch(queryVec []float32, k int) ([]string, error) {
	vecJSON, err := json.Marshal(queryVec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT content FROM contract_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY vec_distance_cosine(embedding, ?) ASC
		 LIMIT ?`,
		string(vecJSON), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectContents(rows)
}

// cosineSearch is the portable brute-force ranking used when sqlite-vec
// is not compiled in. Contract corpora are small; a full scan is fine.
func (s *ContractStore) cosineSearch(queryVec []float32, k int) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT content, embedding FROM contract_chunks WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		content    string
		similarity float64
	}

	var candidates []candidate
	for rows.Next() {
		var content, vecJSON string
		if err := rows.Scan(&content, &vecJSON); err != nil {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			continue
		}

		similarity, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{content: content, similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	results := make([]string, len(candidates))
	for i, c := range candidates {
		results[i] = c.content
	}
	return results, nil
}

// keywordSearch is the degraded path without an embedding engine.
func (s *ContractStore) keywordSearch(query string, k int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT content FROM contract_chunks
		 WHERE content LIKE '%' || ? || '%'
		 ORDER BY id LIMIT ?`,
		query, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := collectContents(rows)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	// No keyword hit: return the first chunks so the auditor still sees
	// some contract text rather than none.
	rows, err = s.db.Query("SELECT content FROM contract_chunks ORDER BY id LIMIT ?", k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContents(rows)
}

func collectContents(rows *sql.Rows) ([]string, error) {
	var results []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			continue
		}
		results = append(results, content)
	}
	return results, rows.Err()
}

// Count returns the number of stored chunks.
func (s *ContractStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM contract_chunks").Scan(&n)
	return n, err
}

// Clear removes all stored chunks (used before a re-index).
func (s *ContractStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM contract_chunks")
	return err
}

// Close closes the underlying database.
func (s *ContractStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
