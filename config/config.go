package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Neo4j holds the graph database connection settings.
type Neo4j struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	// MaxConnectionLifetime bounds how long a pooled connection is reused
	// before being recycled. Stale connections on flaky networks otherwise
	// surface as aborted-connection errors mid-query.
	MaxConnectionLifetime time.Duration `yaml:"max_connection_lifetime"`
	ConnectionTimeout     time.Duration `yaml:"connection_timeout"`
}

// Embeddings holds the OpenAI-compatible embeddings provider settings.
// Works with OpenAI itself or any compatible gateway (SiliconFlow, LiteLLM).
type Embeddings struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// LLM holds the chat-model provider settings for the agent and the
// suggestion service. BaseURL may point at a proxy that speaks either the
// Anthropic or the OpenAI wire protocol.
type LLM struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config is the full process configuration.
type Config struct {
	Neo4j      Neo4j      `yaml:"neo4j"`
	Embeddings Embeddings `yaml:"embeddings"`
	LLM        LLM        `yaml:"llm"`

	// FastRPDimensions is the dimensionality of the structural (FastRP)
	// graph embeddings stored on nodes.
	FastRPDimensions int `yaml:"fastrp_dimensions"`

	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`

	// CORSOrigins is the allow-list for browser clients, including iframe
	// embedding scenarios.
	CORSOrigins []string `yaml:"cors_origins"`

	// DatabaseURL selects the durable Flow store. Empty means the
	// in-memory backend.
	DatabaseURL string `yaml:"database_url"`

	// RedisURL selects the durable chat-transcript store. Empty means the
	// in-memory backend.
	RedisURL string `yaml:"redis_url"`
}

const defaultCORSOrigins = "http://localhost:3000,http://127.0.0.1:3000," +
	"http://localhost:3001,http://127.0.0.1:3001"

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present. If CONFIG_FILE names a YAML file,
// its values override the environment-derived ones.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Neo4j: Neo4j{
			URI:                   getenv("NEO4J_URI", "bolt://localhost:7687"),
			Username:              getenv("NEO4J_USERNAME", "neo4j"),
			Password:              getenv("NEO4J_PASSWORD", "password"),
			Database:              getenv("NEO4J_DATABASE", "neo4j"),
			MaxConnectionLifetime: time.Duration(getenvInt("NEO4J_MAX_CONNECTION_LIFETIME", 1800)) * time.Second,
			ConnectionTimeout:     time.Duration(getenvInt("NEO4J_CONNECTION_TIMEOUT", 30)) * time.Second,
		},
		Embeddings: Embeddings{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_API_BASE"),
			Model:      getenv("OPENAI_EMBEDDING_MODEL", "Qwen/Qwen3-Embedding-8B"),
			Dimensions: getenvInt("OPENAI_EMBEDDING_DIMENSIONS", 4096),
		},
		LLM: LLM{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
			Model:   getenv("AGENT_MODEL", "claude-sonnet-4-20250514"),
		},
		FastRPDimensions: getenvInt("FASTRP_DIMENSIONS", 128),
		Host:             getenv("HOST", "0.0.0.0"),
		Port:             getenvInt("PORT", 8000),
		Debug:            strings.EqualFold(os.Getenv("DEBUG"), "true"),
		CORSOrigins:      splitOrigins(getenv("CORS_ORIGINS", defaultCORSOrigins)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file onto the config. Only keys
// present in the file are touched.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
