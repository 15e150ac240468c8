// Package aggregate merges per-batch LLM responses into per-ticker sentiment
// records. The aggregator exclusively owns the accumulator map; merges are
// serialized internally so concurrent batch workers cannot lose updates.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tickerpulse/tickerpulse/internal/models"
	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

// neutralBand is the numeric score band classified as neutral when a model
// omits the sentiment label.
const neutralBand = 0.05

// maxSnippets bounds the context quotes kept per ticker.
const maxSnippets = 5

// SortKey selects the ordering of the final records.
type SortKey string

const (
	SortByMentions  SortKey = "mentions"
	SortBySentiment SortKey = "sentiment"
)

// SymbolChecker answers ticker membership queries; satisfied by
// tickers.Validator.
type SymbolChecker interface {
	IsValid(symbol string) bool
}

// accumulator is the running per-ticker state. Counts only ever grow.
type accumulator struct {
	mentionCount    int
	subredditCounts map[string]int
	breakdown       models.SentimentBreakdown
	meanSentiment   float64
	scored          int
	snippets        []string
}

// Aggregator folds batch responses into per-ticker accumulators.
type Aggregator struct {
	mu          sync.Mutex
	validator   SymbolChecker
	acc         map[string]*accumulator
	rejected    int
	parseErrors int
}

// New creates an aggregator validating extracted symbols against checker.
func New(checker SymbolChecker) *Aggregator {
	return &Aggregator{
		validator: checker,
		acc:       make(map[string]*accumulator),
	}
}

// Merge parses one model response and folds its valid mentions in. The
// returned errors describe dropped entries (hallucinated symbols, malformed
// JSON regions); an error wrapping ErrUnparseable means nothing at all was
// recovered and the caller should treat the attempt as failed.
func (a *Aggregator) Merge(b models.Batch, resp *models.LLMResponse) []error {
	mentions, parseErrs, err := parseMentions(resp.Content)
	if err != nil {
		a.mu.Lock()
		a.parseErrors += parseErrs
		a.mu.Unlock()
		return []error{err}
	}

	fallbackSub := ""
	if b.Len() > 0 {
		fallbackSub = b.Items[0].Item.Subreddit
	}

	var errs []error

	a.mu.Lock()
	defer a.mu.Unlock()

	a.parseErrors += parseErrs
	for i := 0; i < parseErrs; i++ {
		errs = append(errs, fmt.Errorf("batch %d: malformed mention entry dropped", b.Index))
	}

	for _, m := range mentions {
		ticker := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(m.Ticker, "$")))
		if ticker == "" {
			continue
		}
		if !a.validator.IsValid(ticker) {
			a.rejected++
			logger.L().Debugf("batch %d: rejected unknown symbol %q from %s", b.Index, ticker, resp.Model.DisplayName)
			errs = append(errs, fmt.Errorf("batch %d: symbol %s not in ticker set", b.Index, ticker))
			continue
		}

		acc, ok := a.acc[ticker]
		if !ok {
			acc = &accumulator{subredditCounts: make(map[string]int)}
			a.acc[ticker] = acc
		}

		label, score := normalize(m)

		acc.mentionCount++
		switch label {
		case "positive":
			acc.breakdown.Positive++
		case "negative":
			acc.breakdown.Negative++
		default:
			acc.breakdown.Neutral++
		}

		sub := m.Subreddit
		if sub == "" {
			sub = fallbackSub
		}
		if sub != "" {
			acc.subredditCounts[sub]++
		}

		// Incremental mean keeps memory bounded regardless of mention volume.
		acc.scored++
		acc.meanSentiment += (score - acc.meanSentiment) / float64(acc.scored)

		if m.Snippet != "" && len(acc.snippets) < maxSnippets {
			acc.snippets = append(acc.snippets, m.Snippet)
		}
	}

	return errs
}

// normalize resolves the 3-way label and the numeric score, deriving the
// missing one from the other.
func normalize(m Mention) (label string, score float64) {
	score = m.NumericScore
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}

	switch strings.ToLower(m.Sentiment) {
	case "positive", "negative", "neutral":
		label = strings.ToLower(m.Sentiment)
		if score == 0 {
			switch label {
			case "positive":
				score = 0.5
			case "negative":
				score = -0.5
			}
		}
	default:
		switch {
		case score > neutralBand:
			label = "positive"
		case score < -neutralBand:
			label = "negative"
		default:
			label = "neutral"
		}
	}
	return label, score
}

// Records freezes the accumulators into final records for every ticker with
// at least one mention, sorted by key (descending).
func (a *Aggregator) Records(key SortKey) []models.FinalSentimentRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]models.FinalSentimentRecord, 0, len(a.acc))
	for ticker, acc := range a.acc {
		if acc.mentionCount < 1 {
			continue
		}
		subs := make(map[string]int, len(acc.subredditCounts))
		for s, n := range acc.subredditCounts {
			subs[s] = n
		}
		records = append(records, models.FinalSentimentRecord{
			Ticker:            ticker,
			TotalMentions:     acc.mentionCount,
			SubredditMentions: subs,
			AverageSentiment:  acc.meanSentiment,
			Breakdown:         acc.breakdown,
			SentimentScore:    models.ComputeSentimentScore(acc.breakdown, acc.mentionCount),
			Snippets:          append([]string(nil), acc.snippets...),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if key == SortBySentiment {
			if records[i].SentimentScore != records[j].SentimentScore {
				return records[i].SentimentScore > records[j].SentimentScore
			}
		}
		if records[i].TotalMentions != records[j].TotalMentions {
			return records[i].TotalMentions > records[j].TotalMentions
		}
		return records[i].Ticker < records[j].Ticker
	})

	return records
}

// RejectedCount reports mentions dropped for failing symbol validation.
func (a *Aggregator) RejectedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rejected
}

// ParseErrorCount reports malformed entries dropped during salvage.
func (a *Aggregator) ParseErrorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parseErrors
}
