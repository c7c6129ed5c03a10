package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap())
	assert.Equal(t, 5, cfg.Chat.TopK)
	assert.Equal(t, 500, cfg.Chat.SummaryMaxLength)
	assert.Equal(t, 5, cfg.Chat.MCQNumQuestions)
	assert.Equal(t, ProviderOpenAI, cfg.Embeddings.Provider)
	assert.Equal(t, 1536, cfg.Embeddings.Dimension)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9001
chunking:
  chunk_size: 800
  chunk_overlap: 100
chat:
  top_k: 3
llm:
  provider: ollama
  model: llama3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap())
	assert.Equal(t, 3, cfg.Chat.TopK)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestLoadKeepsExplicitZeroOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunking:
  chunk_size: 800
  chunk_overlap: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Chunking.Overlap())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadResolvesSecretsFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("POSTGRES_DSN", "postgres://e2e:5432/finchat")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "postgres://e2e:5432/finchat", cfg.Storage.PostgresDSN)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Chat.TopK = 7
	ApplyDefaults(&cfg)

	assert.Equal(t, 7, cfg.Chat.TopK)
	assert.Equal(t, 500, cfg.Chat.SummaryMaxLength)
}
