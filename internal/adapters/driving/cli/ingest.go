package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Import scraped records",
	Long: `Imports scraped bulletin records (.json, .yaml or .yml) from a directory.
Each file holds one record or a list of records.

Records whose content has not changed are left alone. Use --process to
summarise the affected cases straight away.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Ingest records as they arrive",
	Long: `Watches a directory for scraped records and ingests them as they are written.
When an LLM provider is configured, each changed document is re-summarised
and its timeline entry recomputed. Stops on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

// ingestProcess is a flag for the ingest command.
var ingestProcess bool

func init() {
	ingestCmd.Flags().BoolVarP(&ingestProcess, "process", "p", false, "Run the pipeline for affected cases")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(watchCmd)
}

func openConnector(path string) (driven.Connector, error) {
	if documentService == nil {
		return nil, errors.New("document service not configured")
	}
	if connectorFactory == nil {
		return nil, errors.New("record connector not configured")
	}
	return connectorFactory(path)
}

func runIngest(cmd *cobra.Command, args []string) error {
	conn, err := openConnector(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	report, err := documentService.Import(cmd.Context(), conn)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Stored %d, unchanged %d, rejected %d\n",
		len(report.Stored), len(report.Unchanged), len(report.Rejected))

	uris := make([]string, 0, len(report.Rejected))
	for uri := range report.Rejected {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		cmd.Println(styles.Warning.Render(fmt.Sprintf("  %s: %s", uri, report.Rejected[uri])))
	}

	if !ingestProcess || len(report.Stored) == 0 {
		return nil
	}

	pipeline, err := requirePipeline()
	if err != nil {
		return err
	}

	cases, err := storedCases(cmd, report)
	if err != nil {
		return err
	}
	for _, caseID := range cases {
		r, err := pipeline.RunCase(cmd.Context(), caseID)
		if err != nil {
			return fmt.Errorf("run case %s: %w", caseID, err)
		}
		renderReport(cmd.OutOrStdout(), *r)
		if r.Cancelled {
			break
		}
	}
	return nil
}

// storedCases returns the sorted cases of the stored documents.
func storedCases(cmd *cobra.Command, report *domain.IngestReport) ([]string, error) {
	seen := make(map[string]bool)
	var cases []string
	for _, id := range report.Stored {
		doc, err := documentService.Get(cmd.Context(), id)
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", id, err)
		}
		if caseID := doc.CaseID(); !seen[caseID] {
			seen[caseID] = true
			cases = append(cases, caseID)
		}
	}
	sort.Strings(cases)
	return cases, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, err := openConnector(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	pipeline, pipeErr := requirePipeline()
	if pipeErr != nil {
		cmd.Println(styles.Warning.Render("Summarisation disabled: " + pipeErr.Error()))
	}

	ctx := cmd.Context()
	onChange := func(doc domain.Document) {
		cmd.Printf("Stored %s (case %s)\n", doc.ID, doc.CaseID())
		if pipeline == nil {
			return
		}
		timeline, err := pipeline.UpdateDocument(ctx, doc.CaseID(), doc.ID)
		switch {
		case errors.Is(err, domain.ErrUndated):
			logger.Warn("watch: %s has no publication date, not on the timeline", doc.ID)
		case err != nil:
			logger.Error("watch: update %s: %v", doc.ID, err)
		default:
			if entry, ok := timeline.EntryFor(doc.ID); ok {
				cmd.Printf("  timeline %s entry %s updated\n", doc.CaseID(), entry.Period)
			}
		}
	}

	logger.SetTimestamps(true)
	cmd.Printf("Watching %s for records (Ctrl+C to stop)\n", args[0])
	if err := documentService.Watch(ctx, conn, onChange); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
