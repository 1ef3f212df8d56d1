package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderOllama, true},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProvider(""), false},
		{AIProvider("cohere"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"empty", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, 64, s.Embedding.BatchSize)
	assert.Equal(t, DefaultTopK, s.Retrieval.TopK)
	assert.Equal(t, DefaultContextBudget, s.Retrieval.ContextBudget)
	assert.Equal(t, 1000, s.Ingest.ChunkSize)
	assert.Equal(t, 4, s.Ingest.Workers)
	assert.Equal(t, ChatLogBackendFile, s.ChatLogBackend)
	assert.True(t, s.Embedding.IsConfigured())
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig(0)

	require.Equal(t, []string{"chunker", "window"}, cfg.Processors)
	assert.Equal(t, 1000, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Nil(t, cfg.GetProcessorConfig("missing"))

	cfg = DefaultPipelineConfig(1500)
	assert.Equal(t, 1500, cfg.GetProcessorConfig("chunker")["chunk_size"])
}

func TestChatLogBackend_IsValid(t *testing.T) {
	assert.True(t, ChatLogBackendSQLite.IsValid())
	assert.False(t, ChatLogBackend("postgres").IsValid())
}
