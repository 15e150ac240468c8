package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable marks a response with no recoverable ticker entries at all.
// The orchestrator treats it like a transport failure and rotates models.
var ErrUnparseable = errors.New("response contained no parseable mentions")

// Mention is one extracted (ticker, sentiment, snippet) tuple.
type Mention struct {
	Ticker       string  `json:"ticker"`
	Sentiment    string  `json:"sentiment"`
	NumericScore float64 `json:"numericScore"`
	Subreddit    string  `json:"subreddit"`
	Snippet      string  `json:"snippet"`
}

// mentionsEnvelope is the requested output contract.
type mentionsEnvelope struct {
	Mentions []Mention `json:"mentions"`
}

// tickerMapEnvelope is the aggregated per-ticker shape some models produce
// instead, keyed by symbol.
type tickerMapEnvelope struct {
	Tickers map[string]struct {
		Mentions  int     `json:"mentions"`
		Sentiment float64 `json:"sentiment"`
	} `json:"tickers"`
}

var (
	codeFence    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	mentionBlock = regexp.MustCompile(`\{[^{}]*"ticker"[^{}]*\}`)
)

// parseMentions extracts whatever well-formed mentions a model response
// holds. It tries a strict decode first, then a decode of fenced content,
// then per-entry salvage of anything shaped like a mention object. The
// returned parseErrs counts malformed entries that were dropped; err is
// non-nil only when nothing at all could be recovered.
func parseMentions(content string) (mentions []Mention, parseErrs int, err error) {
	candidates := []string{strings.TrimSpace(content)}
	for _, m := range codeFence.FindAllStringSubmatch(content, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	for _, c := range candidates {
		if ms, ok := decodeEnvelope(c); ok {
			return ms, 0, nil
		}
	}

	// Salvage pass: decode each mention-shaped object independently so one
	// malformed region (usually truncated output) cannot sink the rest.
	for _, block := range mentionBlock.FindAllString(content, -1) {
		var m Mention
		if jsonErr := json.Unmarshal([]byte(block), &m); jsonErr != nil || m.Ticker == "" {
			parseErrs++
			continue
		}
		mentions = append(mentions, m)
	}

	if len(mentions) == 0 {
		return nil, parseErrs, fmt.Errorf("%w: %d malformed entries", ErrUnparseable, parseErrs)
	}
	return mentions, parseErrs, nil
}

// decodeEnvelope attempts both supported response shapes on a candidate
// JSON document.
func decodeEnvelope(c string) ([]Mention, bool) {
	if c == "" {
		return nil, false
	}

	var env mentionsEnvelope
	if err := json.Unmarshal([]byte(c), &env); err == nil && len(env.Mentions) > 0 {
		return env.Mentions, true
	}

	var tm tickerMapEnvelope
	if err := json.Unmarshal([]byte(c), &tm); err == nil && len(tm.Tickers) > 0 {
		var mentions []Mention
		for ticker, agg := range tm.Tickers {
			count := agg.Mentions
			if count < 1 {
				count = 1
			}
			for i := 0; i < count; i++ {
				mentions = append(mentions, Mention{
					Ticker:       ticker,
					NumericScore: agg.Sentiment,
				})
			}
		}
		return mentions, true
	}

	return nil, false
}
