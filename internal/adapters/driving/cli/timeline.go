package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "View case timelines",
	Long:  `List, show, or export the timelines built by 'tijdlijn run'.`,
}

var timelineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List timelines",
	Args:  cobra.NoArgs,
	RunE:  runTimelineList,
}

var timelineShowCmd = &cobra.Command{
	Use:   "show [case-id]",
	Short: "Show a timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimelineShow,
}

var timelineExportCmd = &cobra.Command{
	Use:   "export [case-id]",
	Short: "Export a timeline as JSON or markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimelineExport,
}

// Flags for the export command.
var (
	exportFormat string
	exportOutput string
)

func init() {
	timelineExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format (json, markdown)")
	timelineExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	timelineCmd.AddCommand(timelineListCmd)
	timelineCmd.AddCommand(timelineShowCmd)
	timelineCmd.AddCommand(timelineExportCmd)
	rootCmd.AddCommand(timelineCmd)
}

func runTimelineList(cmd *cobra.Command, _ []string) error {
	if timelineService == nil {
		return errors.New("timeline service not configured")
	}

	timelines, err := timelineService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list timelines: %w", err)
	}

	if len(timelines) == 0 {
		cmd.Println("No timelines found. Run 'tijdlijn run' to build them.")
		return nil
	}

	cmd.Println("Timelines:")
	cmd.Println()
	for _, t := range timelines {
		span := ""
		if n := len(t.Entries); n > 0 {
			span = fmt.Sprintf(" (%s to %s)", t.Entries[0].Period, t.Entries[n-1].Period)
		}
		cmd.Printf("  %s\n", t.CaseID)
		cmd.Printf("    Entries: %d%s\n", len(t.Entries), span)
		cmd.Printf("    Generated: %s\n", t.GeneratedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}
	cmd.Printf("Total: %d timelines\n", len(timelines))
	return nil
}

func runTimelineShow(cmd *cobra.Command, args []string) error {
	if timelineService == nil {
		return errors.New("timeline service not configured")
	}

	timeline, err := timelineService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get timeline: %w", err)
	}

	renderTimeline(cmd.OutOrStdout(), *timeline)
	return nil
}

func runTimelineExport(cmd *cobra.Command, args []string) error {
	if timelineService == nil {
		return errors.New("timeline service not configured")
	}

	timeline, err := timelineService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get timeline: %w", err)
	}

	var out []byte
	switch exportFormat {
	case "json":
		out, err = json.MarshalIndent(timeline, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding timeline: %w", err)
		}
		out = append(out, '\n')
	case "markdown", "md":
		out = []byte(timelineMarkdown(*timeline))
	default:
		return fmt.Errorf("unknown format %q (use json or markdown)", exportFormat)
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(exportOutput, out, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	cmd.Printf("Timeline %s written to %s\n", timeline.CaseID, exportOutput)
	return nil
}
