// Package config loads guardian configuration from guardian.json with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all guardian configuration.
type Config struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Judgment oracle configuration
	Oracle OracleConfig `json:"oracle"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `json:"embedding"`

	// Data source locations
	Data DataConfig `json:"data"`

	// Interactive server settings
	Server ServerConfig `json:"server"`

	// Audit pipeline settings
	Audit AuditConfig `json:"audit"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// OracleConfig configures the judgment oracle backend.
type OracleConfig struct {
	Provider string `json:"provider"` // ollama, gemini
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Timeout  string `json:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider string `json:"provider"` // ollama, genai
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
}

// DataConfig points at the contract corpus and the transaction CSV.
// ContractDirs and TransactionPaths are consulted in order; the first
// existing path wins (data drops arrive with inconsistent casing).
type DataConfig struct {
	ContractDirs     []string `json:"contract_dirs"`
	TransactionPaths []string `json:"transaction_paths"`
	KnowledgeBase    string   `json:"knowledge_base"` // SQLite path for contract chunks
	WatchContracts   bool     `json:"watch_contracts"`
}

// ServerConfig configures the interactive WebSocket server.
type ServerConfig struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

// AuditConfig tunes the audit pipeline.
type AuditConfig struct {
	// Pace between progress events so a human can follow the narrative.
	// Zero disables pacing entirely.
	Pace string `json:"pace"`

	// TopK contract fragments retrieved per audit.
	TopK int `json:"top_k"`

	// ChunkSize for contract splitting at ingest time, in runes.
	ChunkSize int `json:"chunk_size"`
}

// LoggingConfig configures category file logging (see internal/logging).
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// DefaultConfig returns sensible defaults for a local Ollama setup.
func DefaultConfig() *Config {
	return &Config{
		Name:    "guardian",
		Version: "1.0.0",

		Oracle: OracleConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
			Timeout:  "120s",
		},

		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},

		Data: DataConfig{
			ContractDirs:     []string{"data/contracts", "data/Contracts"},
			TransactionPaths: []string{"data/transactions/invoices.csv", "data/transactions/Transactions.csv", "data/Transactions/Transactions.csv"},
			KnowledgeBase:    "data/guardian.db",
			WatchContracts:   false,
		},

		Server: ServerConfig{
			Addr:      ":8000",
			StaticDir: "static",
		},

		Audit: AuditConfig{
			Pace:      "500ms",
			TopK:      2,
			ChunkSize: 1000,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a JSON file, falling back to defaults when
// the file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		if c.Oracle.Provider == "ollama" {
			c.Oracle.BaseURL = url
		}
		if c.Embedding.Provider == "ollama" {
			c.Embedding.BaseURL = url
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Oracle.Provider == "gemini" {
			c.Oracle.APIKey = key
		}
		if c.Embedding.Provider == "genai" {
			c.Embedding.APIKey = key
		}
	}

	if model := os.Getenv("GUARDIAN_MODEL"); model != "" {
		c.Oracle.Model = model
	}
	if addr := os.Getenv("GUARDIAN_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if db := os.Getenv("GUARDIAN_DB"); db != "" {
		c.Data.KnowledgeBase = db
	}
}

// GetOracleTimeout parses the oracle timeout with a fallback.
func (c *Config) GetOracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// GetPace parses the audit pacing delay. Zero means no pacing.
func (c *Config) GetPace() time.Duration {
	if c.Audit.Pace == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Audit.Pace)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("unsupported oracle provider: %s", c.Oracle.Provider)
	}

	switch c.Embedding.Provider {
	case "", "ollama", "genai":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Oracle.Provider == "gemini" && c.Oracle.APIKey == "" {
		return fmt.Errorf("gemini oracle requires an API key (set GEMINI_API_KEY)")
	}

	if c.Audit.TopK <= 0 {
		return fmt.Errorf("audit top_k must be positive, got %d", c.Audit.TopK)
	}

	return nil
}
