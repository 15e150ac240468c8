package llm

import (
	"fmt"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

const postSeparator = "\n\n---POST SEPARATOR---\n\n"

const systemPrompt = `You are a financial text analyzer. You extract stock ticker mentions and their sentiment from Reddit content and respond with JSON only.`

// BuildPrompt renders the extraction prompt for one batch. Each item carries
// its subreddit tag so mentions can be attributed back to their source.
func BuildPrompt(b models.Batch) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `Extract stock tickers and sentiment from the %d Reddit items below.

RULES:
1. Only real stock tickers (AAPL, TSLA, etc) - ignore common words
2. One entry per distinct mention of a ticker
3. sentiment is one of "positive", "neutral", "negative"
4. numericScore ranges -1 (very negative) to +1 (very positive)
5. subreddit must be copied from the item's [r/...] tag
6. snippet is a short quote of the relevant phrase

ITEMS:
`, b.Len())

	parts := make([]string, 0, b.Len())
	for _, bi := range b.Items {
		kind := "POST"
		if bi.Item.IsComment {
			kind = "COMMENT"
		}
		parts = append(parts, fmt.Sprintf("%s [r/%s, score %d]:\n%s",
			kind, bi.Item.Subreddit, bi.Item.Score, bi.Item.Text()))
	}
	sb.WriteString(strings.Join(parts, postSeparator))

	sb.WriteString(`

OUTPUT (JSON only, no prose):
{
  "mentions": [
    {"ticker": "AAPL", "sentiment": "positive", "numericScore": 0.7, "subreddit": "stocks", "snippet": "loading up before earnings"},
    {"ticker": "TSLA", "sentiment": "negative", "numericScore": -0.4, "subreddit": "wallstreetbets", "snippet": "puts printing"}
  ]
}`)

	return sb.String()
}
