package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui"
)

var tuiUser string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui <model>",
	Short: "Chat with a model in the terminal",
	Long: `Launch an interactive chat console bound to one model.

The status bar shows the model's active corpus version. Every exchange is
recorded in the chat log.

Controls:
  Enter         - Ask the typed question
  + / Ctrl+F    - Mark the last reply helpful (press again to clear)
  -             - Mark the last reply unhelpful
  PgUp / PgDn   - Scroll the transcript
  Esc / Ctrl+C  - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiUser, "user", "u", tui.DefaultUserID, "user id recorded in the chat log")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(chatService, trainingService), args[0])
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context()).WithUserID(tuiUser)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
