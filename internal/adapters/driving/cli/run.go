package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run [case-id]",
	Short: "Summarise documents and rebuild timelines",
	Long: `Processes the documents of a case and rebuilds its timeline.
If no case ID is given, every case in the database is processed.

Documents whose content has not changed since their last summary are
skipped. Interrupting the run lets documents already in progress finish;
the timeline is then left as it was.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var updateCmd = &cobra.Command{
	Use:   "update [case-id] [doc-id]",
	Short: "Re-summarise one document and its timeline entry",
	Long: `Re-summarises a single document and recomputes only the timeline entry
that contains it. All other entries are left untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

// runJSON is a flag for the run command.
var runJSON bool

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run reports as JSON")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(updateCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	var reports []domain.BatchReport
	if len(args) == 1 {
		report, err := pipeline.RunCase(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		reports = append(reports, *report)
	} else {
		reports, err = pipeline.RunAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
	}

	if runJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	if len(reports) == 0 {
		cmd.Println("No cases found. Run 'tijdlijn ingest <path>' first.")
		return nil
	}

	failures := 0
	for _, r := range reports {
		renderReport(cmd.OutOrStdout(), r)
		if r.HasFailures() {
			failures++
		}
	}
	if failures > 0 {
		cmd.Printf("%d of %d cases had failures. Rerun to retry failed documents.\n", failures, len(reports))
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	caseID, docID := args[0], args[1]
	timeline, err := pipeline.UpdateDocument(cmd.Context(), caseID, docID)
	if errors.Is(err, domain.ErrUndated) {
		cmd.Printf("Document %s has no publication date and is not on the timeline.\n", docID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	entry, ok := timeline.EntryFor(docID)
	if !ok {
		cmd.Printf("Document %s updated.\n", docID)
		return nil
	}
	cmd.Printf("Document %s updated in entry %s:\n\n", docID, entry.Period)
	cmd.Println(styles.Entry.Render(entry.Summary))
	return nil
}
