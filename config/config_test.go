package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"CORS_ORIGINS", "PORT", "DEBUG", "CONFIG_FILE", "DATABASE_URL", "REDIS_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, 4096, cfg.Embeddings.Dimensions)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, 128, cfg.FastRPDimensions)
	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:3000")
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "neo4j://db:7687")
	t.Setenv("PORT", "9001")
	t.Setenv("DEBUG", "TRUE")
	t.Setenv("CORS_ORIGINS", "https://a.example , https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, 9001, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "0.0.0.0:9001", cfg.Addr())
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4242\nneo4j:\n  database: graphs\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4242, cfg.Port)
	assert.Equal(t, "graphs", cfg.Neo4j.Database)

	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}
