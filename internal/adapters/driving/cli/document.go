package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect stored documents",
	Long:  `List documents of a case, or view a document's metadata, summary and content.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list [case-id]",
	Short: "List documents for a case",
	Long:  `Lists the documents of a case by publication date. Without a case ID, lists the cases.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if len(args) == 0 {
		cases, err := documentService.ListCases(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list cases: %w", err)
		}
		if len(cases) == 0 {
			cmd.Println("No cases found. Run 'tijdlijn ingest <path>' first.")
			return nil
		}
		cmd.Println("Cases:")
		for _, id := range cases {
			cmd.Printf("  %s\n", id)
		}
		cmd.Printf("\nTotal: %d cases\n", len(cases))
		return nil
	}

	caseID := args[0]
	docs, err := documentService.ListByCase(cmd.Context(), caseID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for case: %s\n", caseID)
		return nil
	}

	cmd.Printf("Documents for case %s:\n\n", caseID)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:     %s\n", docs[i].Metadata.Title)
		cmd.Printf("    Published: %s\n", publishedLabel(docs[i]))
		cmd.Printf("    Stage:     %s\n", stageLabel(docs[i].Status))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	meta := doc.Metadata
	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:        %s\n", meta.Title)
	cmd.Printf("  Case:         %s\n", meta.CaseID)
	cmd.Printf("  Published:    %s\n", publishedLabel(*doc))
	cmd.Printf("  Type:         %s\n", meta.DocType)
	cmd.Printf("  Organisation: %s\n", meta.Organisation)
	cmd.Printf("  Source:       %s\n", meta.SourceURI)
	cmd.Printf("  Stage:        %s\n", stageLabel(doc.Status))
	cmd.Printf("  Created:      %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:      %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(meta.Extra) > 0 {
		keys := make([]string, 0, len(meta.Extra))
		for k := range meta.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, meta.Extra[k])
		}
	}

	if doc.Summary != "" {
		cmd.Println("\n  Summary:")
		cmd.Println(styles.Entry.Render(doc.Summary))
	}
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(doc.Content)
	return nil
}

func publishedLabel(doc domain.Document) string {
	if !doc.Dated() {
		return "(undated)"
	}
	return doc.Metadata.PublishedAt.Format("2006-01-02")
}

func stageLabel(s domain.Status) string {
	if s.Stage == domain.StageFailed {
		return fmt.Sprintf("%s at %s: %s", s.Stage, s.FailedStage, s.Reason)
	}
	if s.Stage == domain.StageNone {
		return "new"
	}
	return string(s.Stage)
}
