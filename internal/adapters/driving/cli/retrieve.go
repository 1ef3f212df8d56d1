package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var (
	retrieveTopK    int
	retrieveVersion string
	retrieveJSON    bool

	askUser     string
	askFeature  string
	askVersion  string
	askLanguage string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <model> <query>",
	Short: "Show the passages most similar to a query",
	Long: `Embeds the query and returns the nearest passages of the model's active
corpus version, together with the context block an LLM would receive.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRetrieve,
}

var askCmd = &cobra.Command{
	Use:   "ask <model> <question>",
	Short: "Ask a question answered from the model's corpus",
	Long: `Retrieves context for the question, asks the configured LLM and records
the exchange in the chat log. The log id is printed so feedback can be given
with "ragdesk feedback".`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of passages (default from settings)")
	retrieveCmd.Flags().StringVar(&retrieveVersion, "version", "", "pin a version instead of the active one")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the result as JSON")

	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "user id recorded in the chat log")
	askCmd.Flags().StringVar(&askFeature, "feature", domain.FeatureRAG, "answer style: rag or lora")
	askCmd.Flags().StringVar(&askVersion, "version", "", "pin a version instead of the active one")
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", "", "question language (translated to English)")

	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(askCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return fmt.Errorf("retrieval %w", errNotConfigured)
	}

	query := strings.Join(args[1:], " ")
	result, err := retrievalService.Retrieve(cmd.Context(), args[0], query, domain.RetrievalOptions{
		TopK:    retrieveTopK,
		Version: retrieveVersion,
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, w := range result.Warnings {
		cmd.Printf("Warning: %s\n", w)
	}
	if result.NotTrained {
		cmd.Printf("Model %s has no active corpus version.\n", args[0])
		return nil
	}
	if len(result.Passages) == 0 {
		cmd.Println("No passages found.")
		return nil
	}

	cmd.Printf("Version %s\n\n", result.VersionID)
	for i, p := range result.Passages {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, p.Source, p.Score)
		cmd.Printf("      %s\n\n", p.Text)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat %w", errNotConfigured)
	}

	resp, err := chatService.Ask(cmd.Context(), domain.ChatRequest{
		UserID:   askUser,
		ModelKey: args[0],
		Feature:  askFeature,
		Version:  askVersion,
		Question: strings.Join(args[1:], " "),
		Language: askLanguage,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	cmd.Println(resp.Reply)
	for _, w := range resp.Warnings {
		cmd.Printf("Warning: %s\n", w)
	}
	cmd.Printf("\n(log id %d)\n", resp.Entry.ID)
	return nil
}
