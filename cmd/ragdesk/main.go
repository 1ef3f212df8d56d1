package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/watcher"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
)

var version = "dev"

// envKeys are the config keys that RAGDESK_* environment variables may override.
var envKeys = []string{
	"data.dir",
	"chunker.chunk_size",
	"retrieval.top_k",
	"retrieval.context_budget",
	"embedding.provider",
	"embedding.model",
	"embedding.base_url",
	"embedding.api_key",
	"embedding.batch_size",
	"embedding.rate_limit",
	"llm.provider",
	"llm.model",
	"llm.base_url",
	"llm.api_key",
	"llm.timeout_seconds",
	"speech.base_url",
	"speech.model",
	"speech.api_key",
	"translate.base_url",
	"translate.api_key",
	"server.addr",
	"server.admin_token",
	"chatlog.backend",
	"ingest.workers",
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cleanup, err := wire(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	err = cli.Execute()
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// wire builds every adapter and service and hands them to the CLI.
// The returned cleanup closes the chat log store and AI clients.
func wire(ctx context.Context) (func(), error) {
	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}
	configStore.LoadEnv(envKeys...)

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(filepath.Dir(configStore.Path()), "data")
	}

	corpora, err := file.NewCorpusStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("corpus store: %w", err)
	}
	versionStore := file.NewVersionStore(dataDir)

	logs, err := openChatLog(settings.ChatLogBackend, dataDir)
	if err != nil {
		return nil, fmt.Errorf("chat log store: %w", err)
	}
	cleanup := func() {
		if err := logs.Close(); err != nil {
			logger.Warn("close chat log: %v", err)
		}
	}

	registry, err := services.NewVersionRegistry(ctx, versionStore)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("version registry: %w", err)
	}
	cache := services.NewCorpusCache(corpora)

	pipeline, err := postprocessors.BuildPipeline(postprocessors.NewDefaultRegistry(), settingsService.GetPipelineConfig())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("ingest pipeline: %w", err)
	}

	collaborators := ai.Init(ctx, *settings)
	for _, w := range collaborators.Warnings {
		logger.Warn("%s", w)
	}
	closeLogs := cleanup
	cleanup = func() {
		closeLogs()
		if collaborators.EmbeddingService != nil {
			_ = collaborators.EmbeddingService.Close()
		}
		if collaborators.LLMService != nil {
			_ = collaborators.LLMService.Close()
		}
	}

	prompts, err := configfile.NewPromptStore(filepath.Join(filepath.Dir(configStore.Path()), "prompts"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	training := services.NewTrainingService(
		registry,
		corpora,
		cache,
		normalisers.NewDefaultRegistry(),
		pipeline,
		collaborators.EmbeddingService,
		flat.Build,
	)
	training.SetBatchSize(settings.Embedding.BatchSize)
	training.SetWorkers(settings.Ingest.Workers)

	retrieval := services.NewRetrievalService(registry, cache, collaborators.EmbeddingService)
	retrieval.SetPolicy(settings.Retrieval.TopK, settings.Retrieval.ContextBudget)

	chat := services.NewChatService(retrieval, collaborators.LLMService, logs, prompts)
	chat.SetTranscriber(collaborators.Transcriber)
	chat.SetTranslator(collaborators.Translator)
	chat.SetLLMTimeout(settingsService.LLMTimeout())

	cli.SetServices(cli.Services{
		Training:  training,
		Retrieval: retrieval,
		Chat:      chat,
		Settings:  settingsService,
	})

	readiness := services.NewReadiness()
	versionWatcher, err := watcher.New(versionStore.Path(), registry, func(ctx context.Context, models []string) {
		cache.Refresh(ctx, registry, models)
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("version watcher: %w", err)
	}

	cli.SetServeConfig(&cli.ServeConfig{
		Addr:       settings.Server.Addr,
		AdminToken: settings.Server.AdminToken,
		Readiness:  readiness,
		Background: []func(context.Context) error{
			func(ctx context.Context) error {
				readiness.Start(ctx, services.WarmUp(registry, cache, collaborators.EmbeddingService))
				return nil
			},
			versionWatcher.Run,
		},
	})

	return cleanup, nil
}

// openChatLog opens the Log Store selected by backend.
func openChatLog(backend domain.ChatLogBackend, dataDir string) (driven.ChatLogStore, error) {
	switch backend {
	case domain.ChatLogBackendSQLite:
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.ChatLogBackendMemory:
		logger.Warn("chat logs are kept in memory and lost on exit")
		return memory.NewChatLogStore(), nil
	case domain.ChatLogBackendFile, "":
		store, err := file.NewChatLogStore(dataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown chat log backend %q", domain.ErrInvalidInput, backend)
	}
}
