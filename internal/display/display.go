// Package display provides terminal formatting for CLI output.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"flight-mail-review-go/internal/service/review"
)

var (
	Muted     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim       = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold      = lipgloss.NewStyle().Bold(true)
	Success   = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	Warning   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	ErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	headerBox = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder())
)

// Header writes a boxed section title
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, headerBox.Render(title))
}

// ProgressBar renders percent as a fixed-width bar
func ProgressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return Success.Render(strings.Repeat("█", filled)) + Dim.Render(strings.Repeat("░", width-filled))
}

// Stats writes review progress
func Stats(w io.Writer, s *review.Stats) {
	Header(w, "Flight Mail Review")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Candidates")
	fmt.Fprintf(w, "    Total       %5d\n", s.TotalCandidates)
	fmt.Fprintf(w, "    Reviewed    %5d\n", s.Reviewed)
	fmt.Fprintf(w, "    Unreviewed  %5d\n", s.Unreviewed)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Decisions")
	fmt.Fprintf(w, "    %s   %5d\n", Success.Render("Confirmed"), s.ConfirmedCount)
	fmt.Fprintf(w, "    %s    %5d\n", Muted.Render("Rejected"), s.RejectedCount)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Progress  %s %3d%%\n", ProgressBar(s.ReviewRatePercent, 30), s.ReviewRatePercent)
}

// IngestResult writes the outcome of one ingestion run
func IngestResult(w io.Writer, r *review.IngestResult) {
	Header(w, "Ingestion")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    Received    %5d\n", r.Received)
	fmt.Fprintf(w, "    %s     %5d\n", Warning.Render("Skipped"), r.Skipped)
	fmt.Fprintf(w, "    Discarded   %5d %s\n", r.Discarded, Dim.Render("(below threshold)"))
	fmt.Fprintf(w, "    Candidates  %5d\n", r.Candidates)
	fmt.Fprintf(w, "    %s    %5d\n", Success.Render("Inserted"), r.Inserted)
	fmt.Fprintf(w, "    Duplicates  %5d\n", r.Duplicates)
}
