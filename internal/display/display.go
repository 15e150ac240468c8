// Package display renders analysis results to the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tickerpulse/tickerpulse/internal/analysis"
	"github.com/tickerpulse/tickerpulse/internal/budget"
	"github.com/tickerpulse/tickerpulse/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	neutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// Renderer writes formatted reports. Out defaults to stdout.
type Renderer struct {
	Out io.Writer
}

func NewRenderer() *Renderer {
	return &Renderer{Out: os.Stdout}
}

// RunReport renders the full outcome of an analysis run: the ranked ticker
// table, the completeness counters, and the remaining request budget.
func (r *Renderer) RunReport(report *analysis.RunReport) {
	fmt.Fprintln(r.Out)
	fmt.Fprintln(r.Out, titleStyle.Render(fmt.Sprintf("Ticker Sentiment (top %s)", report.Timeframe)))

	if len(report.Records) == 0 {
		fmt.Fprintln(r.Out, dimStyle.Render("No ticker mentions found."))
	} else {
		r.recordsTable(report.Records)
	}

	r.completeness(report)
	fmt.Fprintln(r.Out, dimStyle.Render(fmt.Sprintf("Requests remaining today: %d", report.BudgetRemaining)))
	fmt.Fprintln(r.Out)
}

// Record renders a single ticker in detail, snippets included.
func (r *Renderer) Record(rec *models.FinalSentimentRecord) {
	fmt.Fprintln(r.Out)
	fmt.Fprintln(r.Out, titleStyle.Render(fmt.Sprintf("%s (%d mentions)", rec.Ticker, rec.TotalMentions)))

	b := rec.Breakdown
	fmt.Fprintf(r.Out, "  Sentiment score: %s   avg %.2f\n", styledScore(rec.SentimentScore), rec.AverageSentiment)
	fmt.Fprintf(r.Out, "  Breakdown: %s / %s / %s\n",
		positiveStyle.Render(fmt.Sprintf("%d pos", b.Positive)),
		neutralStyle.Render(fmt.Sprintf("%d neu", b.Neutral)),
		negativeStyle.Render(fmt.Sprintf("%d neg", b.Negative)))

	if len(rec.SubredditMentions) > 0 {
		var parts []string
		for sub, n := range rec.SubredditMentions {
			parts = append(parts, fmt.Sprintf("r/%s (%d)", sub, n))
		}
		fmt.Fprintf(r.Out, "  Subreddits: %s\n", strings.Join(parts, ", "))
	}

	if len(rec.Snippets) > 0 {
		fmt.Fprintln(r.Out, headerStyle.Render("  Sample mentions:"))
		for _, s := range rec.Snippets {
			fmt.Fprintf(r.Out, "    %s %s\n", dimStyle.Render("•"), truncate(s, 90))
		}
	}
	fmt.Fprintln(r.Out)
}

// Budget renders the daily request budget status.
func (r *Renderer) Budget(s budget.State) {
	remaining := s.DailyLimit - s.RequestsUsed
	if remaining < 0 {
		remaining = 0
	}
	line := fmt.Sprintf("Daily request budget (%s): %d/%d used, %d remaining",
		s.Date, s.RequestsUsed, s.DailyLimit, remaining)
	switch {
	case remaining == 0:
		fmt.Fprintln(r.Out, errStyle.Render(line))
	case s.RequestsUsed*4 >= s.DailyLimit*3:
		fmt.Fprintln(r.Out, warnStyle.Render(line))
	default:
		fmt.Fprintln(r.Out, line)
	}
}

// Quote renders a single price line next to a sentiment lookup.
func (r *Renderer) Quote(symbol, price, changePct string) {
	change := neutralStyle
	if strings.HasPrefix(changePct, "-") {
		change = negativeStyle
	} else if changePct != "" && changePct != "0" {
		change = positiveStyle
	}
	fmt.Fprintf(r.Out, "  %s  $%s  %s\n", headerStyle.Render(symbol), price, change.Render(changePct+"%"))
}

func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.Out, errStyle.Render(fmt.Sprintf("Error: %v", err)))
}

func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.Out, dimStyle.Render(msg))
}

func (r *Renderer) recordsTable(records []models.FinalSentimentRecord) {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-8s %9s %9s %6s %6s %6s", "#", "Ticker", "Mentions", "Score", "Pos", "Neu", "Neg")))
	sb.WriteString("\n")

	for i, rec := range records {
		sb.WriteString(fmt.Sprintf("%-4d %-8s %9d %s %6d %6d %6d\n",
			i+1,
			rec.Ticker,
			rec.TotalMentions,
			styledScore(rec.SentimentScore),
			rec.Breakdown.Positive,
			rec.Breakdown.Neutral,
			rec.Breakdown.Negative))
	}

	fmt.Fprintln(r.Out, tableStyle.Render(strings.TrimRight(sb.String(), "\n")))
}

// completeness always shows the abandoned and skipped counts so a partial
// run is never mistaken for a complete one.
func (r *Renderer) completeness(report *analysis.RunReport) {
	line := fmt.Sprintf("Batches: %d parsed, %d abandoned, %d skipped (of %d, %d attempts)",
		report.BatchesParsed, report.BatchesAbandoned, report.BatchesSkipped, report.Batches, report.Attempts)
	if report.BatchesAbandoned > 0 || report.BatchesSkipped > 0 {
		fmt.Fprintln(r.Out, warnStyle.Render(line))
	} else {
		fmt.Fprintln(r.Out, dimStyle.Render(line))
	}

	details := fmt.Sprintf("Content: %d fetched, %d kept, %d truncated | rejected symbols: %d, parse errors: %d",
		report.ItemsFetched, report.ItemsKept, report.TruncatedItems, report.RejectedSymbols, report.ParseErrors)
	fmt.Fprintln(r.Out, dimStyle.Render(details))
	fmt.Fprintln(r.Out, dimStyle.Render("Completed at "+time.Now().Format("2006-01-02 15:04:05")))
}

func styledScore(score float64) string {
	text := fmt.Sprintf("%9.3f", score)
	switch {
	case score > 0.05:
		return positiveStyle.Render(text)
	case score < -0.05:
		return negativeStyle.Render(text)
	default:
		return neutralStyle.Render(text)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
