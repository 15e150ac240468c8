package display

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tickerpulse/tickerpulse/internal/analysis"
	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

// ExportMarkdown writes the run report as a dated markdown file under dir and
// returns the file path.
func ExportMarkdown(report *analysis.RunReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory %s: %w", dir, err)
	}

	now := time.Now()
	fileName := fmt.Sprintf("sentiment_%s_%s.md", report.Timeframe, now.Format("2006-01-02_150405"))
	path := filepath.Join(dir, fileName)

	if err := os.WriteFile(path, []byte(renderMarkdown(report, now)), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	logger.L().Infof("report written to %s", path)
	return path, nil
}

func renderMarkdown(report *analysis.RunReport, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Ticker Sentiment Report (top %s)\n\n", report.Timeframe)
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	if len(report.Records) == 0 {
		sb.WriteString("No ticker mentions found.\n\n")
	} else {
		sb.WriteString("| # | Ticker | Mentions | Score | Avg | Pos | Neu | Neg | Subreddits |\n")
		sb.WriteString("|---|--------|----------|-------|-----|-----|-----|-----|------------|\n")
		for i, rec := range report.Records {
			subs := make([]string, 0, len(rec.SubredditMentions))
			for s := range rec.SubredditMentions {
				subs = append(subs, s)
			}
			sort.Strings(subs)
			fmt.Fprintf(&sb, "| %d | %s | %d | %.3f | %.2f | %d | %d | %d | %s |\n",
				i+1, rec.Ticker, rec.TotalMentions, rec.SentimentScore, rec.AverageSentiment,
				rec.Breakdown.Positive, rec.Breakdown.Neutral, rec.Breakdown.Negative,
				strings.Join(subs, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Run summary\n\n")
	fmt.Fprintf(&sb, "- Content: %d fetched, %d kept, %d truncated\n",
		report.ItemsFetched, report.ItemsKept, report.TruncatedItems)
	fmt.Fprintf(&sb, "- Batches: %d parsed, %d abandoned, %d skipped of %d (%d attempts)\n",
		report.BatchesParsed, report.BatchesAbandoned, report.BatchesSkipped, report.Batches, report.Attempts)
	fmt.Fprintf(&sb, "- Rejected symbols: %d, parse errors: %d\n", report.RejectedSymbols, report.ParseErrors)
	fmt.Fprintf(&sb, "- Requests remaining today: %d\n", report.BudgetRemaining)

	return sb.String()
}
