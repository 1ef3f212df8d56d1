// Package cli provides the ragdesk command line interface.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var verbose bool

// Services injected by the entry point.
var (
	trainingService  driving.TrainingService
	retrievalService driving.RetrievalService
	chatService      driving.ChatService
	settingsService  driving.SettingsService
)

var errNotConfigured = errors.New("service not configured")

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Versioned retrieval corpora for LLM chat",
	Long: `ragdesk trains versioned passage corpora from reference documents and
answers questions with an LLM grounded on the passages most similar to them.

Each model key owns any number of corpus versions; exactly one is active and
serves queries. Versions can be activated, pinned per query or deleted.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services groups the core services used by commands.
type Services struct {
	Training  driving.TrainingService
	Retrieval driving.RetrievalService
	Chat      driving.ChatService
	Settings  driving.SettingsService
}

// SetServices injects the core services.
func SetServices(s Services) {
	trainingService = s.Training
	retrievalService = s.Retrieval
	chatService = s.Chat
	settingsService = s.Settings
}

// SetVersion sets the version reported by "ragdesk version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
