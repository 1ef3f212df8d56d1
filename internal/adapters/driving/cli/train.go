package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

var (
	trainVersion     string
	trainDescription string
	versionsJSON     bool
)

var trainCmd = &cobra.Command{
	Use:   "train <model> <files...>",
	Short: "Train a new corpus version from documents",
	Long: `Extracts text from the given files (plain text, markdown, HTML, PDF, DOCX),
splits it into passages, embeds them and stores the result as a new corpus
version of the model. The new version becomes the active one.

A version id is generated when --version is not given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTrain,
}

var versionsCmd = &cobra.Command{
	Use:   "versions [model]",
	Short: "List corpus versions",
	Long:  `Lists the versions of one model, or of every model when no model is given, newest first.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVersions,
}

var activateCmd = &cobra.Command{
	Use:   "activate <model> <version>",
	Short: "Make a version the active one",
	Args:  cobra.ExactArgs(2),
	RunE:  runActivate,
}

var deleteVersionCmd = &cobra.Command{
	Use:   "delete-version <model> <version>",
	Short: "Delete a corpus version",
	Long: `Deletes a version and its files. When the active version is deleted the
most recently created remaining version of the model becomes active.`,
	Args: cobra.ExactArgs(2),
	RunE: runDeleteVersion,
}

func init() {
	trainCmd.Flags().StringVar(&trainVersion, "version", "", "version id (generated when empty)")
	trainCmd.Flags().StringVarP(&trainDescription, "description", "d", "", "free-text description")
	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "output versions as JSON")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deleteVersionCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	if trainingService == nil {
		return fmt.Errorf("training %w", errNotConfigured)
	}

	docs, err := readDocuments(args[1:])
	if err != nil {
		return err
	}

	v, err := trainingService.Train(cmd.Context(), driving.TrainRequest{
		ModelKey:    args[0],
		VersionID:   trainVersion,
		Description: trainDescription,
		Documents:   docs,
	})
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	cmd.Printf("Trained %s: %d passages from %d files (%d dimensions, %s)\n",
		v.Key(), v.PassageCount, len(v.Files), v.Dimensions, v.EmbeddingModel)
	cmd.Printf("Version %s is now active.\n", v.VersionID)
	return nil
}

// readDocuments loads files from disk. The extension decides the format.
func readDocuments(paths []string) ([]domain.RawDocument, error) {
	docs := make([]domain.RawDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		docs = append(docs, domain.RawDocument{
			Name:    filepath.Base(p),
			Content: content,
		})
	}
	return docs, nil
}

func runVersions(cmd *cobra.Command, args []string) error {
	if trainingService == nil {
		return fmt.Errorf("training %w", errNotConfigured)
	}

	var (
		versions []domain.CorpusVersion
		err      error
	)
	if len(args) == 1 {
		versions, err = trainingService.Versions(cmd.Context(), args[0])
	} else {
		versions, err = trainingService.History(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("listing versions: %w", err)
	}

	if versionsJSON {
		if versions == nil {
			versions = []domain.CorpusVersion{}
		}
		data, err := json.MarshalIndent(versions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal versions: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(versions) == 0 {
		cmd.Println("No versions found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tVERSION\tACTIVE\tCREATED\tPASSAGES\tFILES\tDESCRIPTION")
	for _, v := range versions {
		active := ""
		if v.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			v.ModelKey, v.VersionID, active, v.CreatedAt.Local().Format(time.DateTime),
			v.PassageCount, strings.Join(v.Files, ","), v.Description)
	}
	return w.Flush()
}

func runActivate(cmd *cobra.Command, args []string) error {
	if trainingService == nil {
		return fmt.Errorf("training %w", errNotConfigured)
	}

	v, err := trainingService.Activate(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("activating %s/%s: %w", args[0], args[1], err)
	}
	cmd.Printf("Active version of %s is now %s\n", v.ModelKey, v.VersionID)
	return nil
}

func runDeleteVersion(cmd *cobra.Command, args []string) error {
	if trainingService == nil {
		return fmt.Errorf("training %w", errNotConfigured)
	}

	model, versionID := args[0], args[1]
	if err := trainingService.DeleteVersion(cmd.Context(), model, versionID); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", model, versionID, err)
	}
	cmd.Printf("Deleted %s/%s\n", model, versionID)

	active, err := trainingService.Active(cmd.Context(), model)
	if err == nil {
		cmd.Printf("Active version of %s is %s\n", model, active.VersionID)
	}
	return nil
}
