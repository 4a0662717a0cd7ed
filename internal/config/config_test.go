package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Oracle.Provider)
	assert.Equal(t, "llama3.2", cfg.Oracle.Model)
	assert.Equal(t, 2, cfg.Audit.TopK)
	assert.Equal(t, 500*time.Millisecond, cfg.GetPace())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian.json")
	body := `{
		"oracle": {"provider": "ollama", "model": "mistral", "base_url": "http://other:11434", "timeout": "30s"},
		"audit": {"pace": "0s", "top_k": 5, "chunk_size": 800}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.Oracle.Model)
	assert.Equal(t, 30*time.Second, cfg.GetOracleTimeout())
	assert.Equal(t, time.Duration(0), cfg.GetPace(), "pace must be zero-able")
	assert.Equal(t, 5, cfg.Audit.TopK)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardian.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://ollama_service:11434")
	t.Setenv("GUARDIAN_MODEL", "llama3.1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://ollama_service:11434", cfg.Oracle.BaseURL)
	assert.Equal(t, "http://ollama_service:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, "llama3.1", cfg.Oracle.Model)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Oracle.Provider = "watson"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Oracle.Provider = "gemini"
	cfg.Oracle.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Audit.TopK = 0
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "guardian.json")

	cfg := DefaultConfig()
	cfg.Oracle.Model = "llama3.2:70b"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2:70b", loaded.Oracle.Model)
}
