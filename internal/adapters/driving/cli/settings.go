package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var (
	providerFlag string
	modelFlag    string
	apiKeyFlag   string
	skipPing     bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding and LLM providers and other options.

Settings live in ~/.ragdesk/config.toml. RAGDESK_* environment variables
(or a .env file) override file values, e.g. RAGDESK_LLM_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "set-embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used to train and query corpora.

Without --provider an interactive prompt is shown. The API key is read without
echo when it is required and not given with --api-key.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "set-llm",
	Short: "Configure the LLM provider",
	Long: `Configure the LLM provider that answers questions.

Without --provider an interactive prompt is shown. The API key is read without
echo when it is required and not given with --api-key.`,
	RunE: runSettingsLLM,
}

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVar(&providerFlag, "provider", "", "provider: ollama, openai or anthropic")
		c.Flags().StringVar(&modelFlag, "model", "", "model name (provider default when empty)")
		c.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key for cloud providers")
		c.Flags().BoolVar(&skipPing, "no-validate", false, "save without pinging the provider")
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings %w", errNotConfigured)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Data]")
	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = "(default)"
	}
	cmd.Printf("  Directory: %s\n", dataDir)
	cmd.Printf("  Chat log backend: %s\n", settings.ChatLogBackend)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	printEndpoint(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	if settings.Embedding.RateLimit > 0 {
		cmd.Printf("  Rate limit: %g req/s\n", settings.Embedding.RateLimit)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	printEndpoint(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Timeout: %ds\n", settings.LLM.TimeoutSeconds)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Context budget: %d chars\n", settings.Retrieval.ContextBudget)
	cmd.Printf("  Chunk size: %d chars\n", settings.Ingest.ChunkSize)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	if settings.Server.AdminToken != "" {
		cmd.Printf("  Admin token: %s\n", maskAPIKey(settings.Server.AdminToken))
	} else {
		cmd.Println("  Admin token: (not set, admin API disabled)")
	}
	cmd.Println()

	if settings.Speech.BaseURL != "" || settings.Translate.BaseURL != "" {
		cmd.Println("[Collaborators]")
		if settings.Speech.BaseURL != "" {
			cmd.Printf("  Speech: %s\n", settings.Speech.BaseURL)
		}
		if settings.Translate.BaseURL != "" {
			cmd.Printf("  Translate: %s\n", settings.Translate.BaseURL)
		}
		cmd.Println()
	}

	if !settings.Embedding.IsConfigured() || !settings.LLM.IsConfigured() {
		cmd.Println("Run 'ragdesk settings set-embedding' or 'ragdesk settings set-llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if provider.IsLocal() || baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings %w", errNotConfigured)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	provider, model, apiKey, err := chooseProvider(cmd, reader,
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if !skipPing {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), modelOrDefault(model, domain.DefaultEmbeddingModels()[provider]))
	cmd.Println("Existing corpus versions keep the embedding model they were trained with; retrain to switch.")
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings %w", errNotConfigured)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	provider, model, apiKey, err := chooseProvider(cmd, reader,
		domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if !skipPing {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateLLMConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), modelOrDefault(model, domain.DefaultLLMModels()[provider]))
	return nil
}

// chooseProvider resolves provider, model and key from flags, prompting for
// whatever is missing.
func chooseProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, string, error) {
	var provider domain.AIProvider
	model := modelFlag

	if providerFlag != "" {
		provider = domain.AIProvider(strings.ToLower(providerFlag))
		if !provider.IsValid() {
			return "", "", "", fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, providerFlag)
		}
	} else {
		cmd.Println("Select Provider")
		for i, p := range providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(reader), len(providers), 1)
		provider = providers[idx-1]

		if model == "" {
			cmd.Printf("Enter model name [%s]: ", defaults[provider])
			model = readLine(reader)
		}
	}

	apiKey := apiKeyFlag
	if provider.RequiresAPIKey() && apiKey == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

func modelOrDefault(model, def string) string {
	if model == "" {
		return def
	}
	return model
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, otherwise a plain line from fallback.
func readPassword(fallback io.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	reader, ok := fallback.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(fallback)
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
