package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var (
	logsModel    string
	logsFeedback string
	logsUser     string
	logsSkip     int
	logsLimit    int
	logsCSV      bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List chat log entries",
	Long: `Lists recorded exchanges, newest first.

Use --feedback none to list exchanges nobody rated yet, and --csv to export
the filtered log as CSV.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <id> <value>",
	Short: "Record feedback on a chat log entry",
	Long: `Records feedback on an exchange identified by its log id. Typical values are
"positive" and "negative"; "none" clears the feedback.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func init() {
	logsCmd.Flags().StringVarP(&logsModel, "model", "m", "", "filter by model key (case-insensitive)")
	logsCmd.Flags().StringVar(&logsFeedback, "feedback", "", `filter by feedback ("none" for unrated)`)
	logsCmd.Flags().StringVar(&logsUser, "user", "", "filter by user id")
	logsCmd.Flags().IntVar(&logsSkip, "skip", 0, "entries to skip")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", domain.DefaultLogLimit, "maximum entries")
	logsCmd.Flags().BoolVar(&logsCSV, "csv", false, "write CSV to stdout")

	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return fmt.Errorf("chat %w", errNotConfigured)
	}
	if logsSkip < 0 || logsLimit < 0 {
		return fmt.Errorf("%w: --skip and --limit must not be negative", domain.ErrInvalidInput)
	}

	filter := domain.LogFilter{
		ModelKey: logsModel,
		Feedback: logsFeedback,
		UserID:   logsUser,
		Skip:     logsSkip,
		Limit:    logsLimit,
	}

	if logsCSV {
		return chatService.ExportCSV(cmd.Context(), cmd.OutOrStdout(), filter)
	}

	entries, err := chatService.Logs(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing logs: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No log entries found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tUSER\tMODEL\tVERSION\tFEEDBACK\tQUESTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Timestamp.Local().Format(time.DateTime), e.UserID, e.ModelKey,
			e.Version, e.Feedback, truncate(e.Question, 60))
	}
	return w.Flush()
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return fmt.Errorf("chat %w", errNotConfigured)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: log id must be a positive integer", domain.ErrInvalidInput)
	}

	entry, err := chatService.SetFeedback(cmd.Context(), domain.FeedbackKey{ID: id}, args[1])
	if err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	if entry.Feedback == "" {
		cmd.Printf("Cleared feedback on entry %d\n", entry.ID)
		return nil
	}
	cmd.Printf("Recorded %q on entry %d\n", entry.Feedback, entry.ID)
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
