package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible server).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts per embedding call.
	BatchSize int

	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// TimeoutSeconds bounds one generation call.
	TimeoutSeconds int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds query-time policy values.
type RetrievalSettings struct {
	TopK          int
	ContextBudget int
}

// IngestSettings holds training-time knobs.
type IngestSettings struct {
	ChunkSize int
	Workers   int
}

// SpeechSettings configures the speech-to-text collaborator.
type SpeechSettings struct {
	BaseURL string
	Model   string
	APIKey  string
}

// TranslateSettings configures the translation collaborator.
type TranslateSettings struct {
	BaseURL string
	APIKey  string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr       string
	AdminToken string
}

// ChatLogBackend selects the Log Store implementation.
type ChatLogBackend string

// Available chat log backends.
const (
	ChatLogBackendFile   ChatLogBackend = "file"
	ChatLogBackendSQLite ChatLogBackend = "sqlite"
	ChatLogBackendMemory ChatLogBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b ChatLogBackend) IsValid() bool {
	switch b {
	case ChatLogBackendFile, ChatLogBackendSQLite, ChatLogBackendMemory:
		return true
	default:
		return false
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	DataDir        string
	Embedding      EmbeddingSettings
	LLM            LLMSettings
	Retrieval      RetrievalSettings
	Ingest         IngestSettings
	Speech         SpeechSettings
	Translate      TranslateSettings
	Server         ServerSettings
	ChatLogBackend ChatLogBackend
}

// DefaultAppSettings returns settings with sensible defaults.
// Embedding and LLM default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize: 64,
		},
		LLM: LLMSettings{
			Provider:       AIProviderOllama,
			Model:          DefaultLLMModels()[AIProviderOllama],
			TimeoutSeconds: 60,
		},
		Retrieval: RetrievalSettings{
			TopK:          DefaultTopK,
			ContextBudget: DefaultContextBudget,
		},
		Ingest: IngestSettings{
			ChunkSize: 1000,
			Workers:   4,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		ChatLogBackend: ChatLogBackendFile,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration keyed by processor name.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the ingestion pipeline: sentence packing
// followed by the previous-chunk context window.
func DefaultPipelineConfig(chunkSize int) PipelineConfig {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return PipelineConfig{
		Processors: []string{"chunker", "window"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": chunkSize,
			},
			"window": {
				"previous": 1,
			},
		},
	}
}
