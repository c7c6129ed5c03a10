// Package config provides configuration loading for the finchat service.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Chat     ChatConfig     `yaml:"chat"`

	Embeddings ProviderConfig `yaml:"embeddings"`
	LLM        ProviderConfig `yaml:"llm"`

	// Secrets, resolved from the environment only.
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"-"`
	OllamaHost    string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the Postgres connection string for the chunk store.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ChunkingConfig holds fixed-window chunking parameters (in characters).
// ChunkOverlap is a pointer so an explicit zero overlap survives defaulting.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// Overlap returns the configured overlap, defaulting to 200 when unset.
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 200
	}
	return *c.ChunkOverlap
}

// ChatConfig holds retrieval and response-shaping settings.
type ChatConfig struct {
	TopK             int `yaml:"top_k"`
	SummaryMaxLength int `yaml:"summary_max_length"`
	MCQNumQuestions  int `yaml:"mcq_num_questions"`
	HistoryTurns     int `yaml:"history_turns"`
}

// ProviderConfig selects a model provider for one capability.
type ProviderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// Load reads the optional YAML config at path, applies defaults, and resolves
// secrets from the environment. An empty path yields the default configuration.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)

	cfg.Storage.PostgresDSN = getEnv("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	cfg.OllamaHost = getEnv("OLLAMA_HOST", "http://localhost:11434")

	return cfg, nil
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = "postgres://localhost:5432/finchat?sslmode=disable"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == nil {
		overlap := 200
		cfg.Chunking.ChunkOverlap = &overlap
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 5
	}
	if cfg.Chat.SummaryMaxLength == 0 {
		cfg.Chat.SummaryMaxLength = 500
	}
	if cfg.Chat.MCQNumQuestions == 0 {
		cfg.Chat.MCQNumQuestions = 5
	}
	if cfg.Chat.HistoryTurns == 0 {
		cfg.Chat.HistoryTurns = 5
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = ProviderOpenAI
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 1536
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4-turbo-preview"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
