package models

import "math"

// SentimentBreakdown counts the 3-way classification of mentions.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total returns the number of classified mentions.
func (b SentimentBreakdown) Total() int {
	return b.Positive + b.Neutral + b.Negative
}

// FinalSentimentRecord is the per-ticker output of one analysis run.
type FinalSentimentRecord struct {
	Ticker            string             `json:"ticker"`
	Timeframe         string             `json:"timeframe,omitempty"`
	TotalMentions     int                `json:"total_mentions"`
	SubredditMentions map[string]int     `json:"subreddit_mentions"`
	AverageSentiment  float64            `json:"average_sentiment"`
	Breakdown         SentimentBreakdown `json:"sentiment_breakdown"`
	SentimentScore    float64            `json:"sentiment_score"`
	Snippets          []string           `json:"snippets,omitempty"`
}

// ComputeSentimentScore derives the mention-weighted sentiment score:
// ((positive-negative)/max(1,total)) * ln(1+totalMentions).
func ComputeSentimentScore(b SentimentBreakdown, totalMentions int) float64 {
	den := b.Total()
	if den < 1 {
		den = 1
	}
	base := float64(b.Positive-b.Negative) / float64(den)
	return base * math.Log(1+float64(totalMentions))
}
