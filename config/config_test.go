package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/ragtime/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ragtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, f.Pipeline.TopK)
	assert.Equal(t, "qwen2.5:7b", f.AI.ChatModel)
	assert.Equal(t, "ragtime.db", f.Storage.Path)
	assert.False(t, f.Redis.Enabled())
	assert.Equal(t, ":8080", f.Server.Addr)
	assert.Equal(t, "qa", f.Ingestion.Preset)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, `
ai:
  chat_host: http://gpu-box:8000
  chat_model: llama3
  request_timeout: 45s
pipeline:
  top_k: 5
  similarity_threshold: 0.42
  enable_reranking: true
  prompt_version: 1.2.0
redis:
  addr: localhost:6379
  ttl: 1h
server:
  addr: 127.0.0.1:9000
ingestion:
  preset: search
  chunk_overlap: 25
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:8000/v1", f.AI.ChatHost)
	assert.Equal(t, "llama3", f.AI.ChatModel)
	assert.Equal(t, 45*time.Second, f.AI.RequestTimeout)
	assert.Equal(t, "embeddinggemma", f.AI.EmbeddingModel)

	assert.Equal(t, 5, f.Pipeline.TopK)
	assert.Equal(t, float32(0.42), f.Pipeline.SimilarityThreshold)
	assert.True(t, f.Pipeline.EnableReranking)
	assert.Equal(t, "1.2.0", f.Pipeline.PromptVersion)
	assert.Equal(t, 3, f.Pipeline.RetrievalMultiplier)
	assert.True(t, f.Pipeline.EnableQueryRewriting)

	assert.True(t, f.Redis.Enabled())
	assert.Equal(t, time.Hour, f.Redis.TTL)
	assert.Equal(t, "ragtime:session:", f.Redis.KeyPrefix)
	assert.Equal(t, "127.0.0.1:9000", f.Server.Addr)

	c, err := f.Ingestion.Chunking()
	require.NoError(t, err)
	assert.Equal(t, 500, c.Size)
	assert.Equal(t, 25, c.Overlap)
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-from-env")
	path := writeFile(t, "ai:\n  api_key: sk-from-file\n")

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", f.AI.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "pipeline: [", "parse config"},
		{"invalid pipeline", "pipeline:\n  top_k: 0\n", "pipeline config"},
		{"invalid ai", "ai:\n  max_retries: 0\n", "ai config"},
		{"no storage path", "storage:\n  path: \"\"\n", "storage config"},
		{"negative ttl", "redis:\n  ttl: -1s\n", "redis config"},
		{"empty server addr", "server:\n  addr: \"\"\n", "server config"},
		{"unknown preset", "ingestion:\n  preset: huge\n", "unknown chunking preset"},
		{"unknown strategy", "ingestion:\n  strategy: sentences\n", "ingestion config"},
		{"overlap too large", "ingestion:\n  chunk_size: 100\n  chunk_overlap: 100\n", "ingestion config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParse_NullSectionKeepsDefaults(t *testing.T) {
	f := Default()
	require.NoError(t, Parse([]byte("ai: null\npipeline: ~\n"), f))
	assert.NotNil(t, f.AI)
	assert.Equal(t, 7, f.Pipeline.TopK)
}

func TestIngestionOptions(t *testing.T) {
	i := Default().Ingestion
	i.Workers = 2
	opts, err := i.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	i.Preset = "nope"
	_, err = i.Options()
	assert.ErrorIs(t, err, ingestion.ErrUnknownPreset)
}
