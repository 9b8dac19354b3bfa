package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// Theme defines the colour palette for command output.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"), // Medium gray
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Error:     lipgloss.Color("#F38BA8"), // Red
		Border:    lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title   lipgloss.Style
	Period  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Entry   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Period: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Entry: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Border).
			PaddingLeft(1),
	}
}

var styles = NewStyles(nil)

// renderTimeline writes a timeline for the terminal.
func renderTimeline(w io.Writer, t domain.Timeline) {
	fmt.Fprintln(w, styles.Title.Render("Timeline "+t.CaseID))
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d entries, grouped by %s, generated %s",
		len(t.Entries), t.Granularity, t.GeneratedAt.Format("2006-01-02 15:04"))))
	fmt.Fprintln(w)

	if t.Description != "" {
		fmt.Fprintln(w, t.Description)
		fmt.Fprintln(w)
	}

	for _, e := range t.Entries {
		fmt.Fprintln(w, styles.Period.Render(e.Period))
		fmt.Fprintln(w, styles.Entry.Render(e.Summary))
		fmt.Fprintln(w, styles.Muted.Render("  documents: "+strings.Join(e.DocumentIDs, ", ")))
		fmt.Fprintln(w)
	}
}

// renderReport writes a batch report summary.
func renderReport(w io.Writer, r domain.BatchReport) {
	fmt.Fprintln(w, styles.Title.Render("Case "+r.CaseID))
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("run %s, %s",
		r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(100*time.Millisecond))))

	fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf("  succeeded: %d", len(r.Succeeded))))
	fmt.Fprintf(w, "  skipped:   %d\n", len(r.Skipped))
	for _, s := range r.Skipped {
		fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("    %s: %s", s.ID, s.Reason)))
	}

	failed := fmt.Sprintf("  failed:    %d", len(r.Failed))
	if len(r.Failed) > 0 {
		failed = styles.Error.Render(failed)
	}
	fmt.Fprintln(w, failed)
	for _, f := range r.Failed {
		fmt.Fprintln(w, styles.Error.Render(fmt.Sprintf("    %s at %s: %s", f.ID, f.Stage, f.Reason)))
	}

	for _, e := range r.EntryFailures {
		fmt.Fprintln(w, styles.Warning.Render(fmt.Sprintf("  entry %s kept previous summary: %s", e.Period, e.Reason)))
	}

	switch {
	case r.Cancelled:
		fmt.Fprintln(w, styles.Warning.Render("  cancelled, timeline not rebuilt"))
	case r.TimelineBuilt:
		fmt.Fprintln(w, styles.Success.Render("  timeline rebuilt"))
	default:
		fmt.Fprintln(w, styles.Muted.Render("  timeline not rebuilt"))
	}
	fmt.Fprintln(w)
}

// timelineMarkdown renders a timeline as a markdown document.
func timelineMarkdown(t domain.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Timeline %s\n\n", t.CaseID)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	for _, e := range t.Entries {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", e.Period, e.Summary)
		fmt.Fprintf(&b, "_Documents: %s_\n\n", strings.Join(e.DocumentIDs, ", "))
	}
	return b.String()
}
