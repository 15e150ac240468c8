// Package batch packs filtered content into token-budgeted groups for the
// LLM orchestrator.
package batch

import (
	"github.com/tickerpulse/tickerpulse/internal/models"
)

// DefaultMaxTokens targets 100K+ context windows with headroom for the
// prompt scaffolding and response.
const DefaultMaxTokens = 98000

// charsPerToken is the rough estimate used across the pipeline: one token
// per four characters of text.
const charsPerToken = 4

// EstimateTokens estimates the token cost of a piece of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// Pack groups items into batches whose estimated token sums stay at or under
// maxTokens, greedy first-fit in input order. An item that alone exceeds the
// ceiling is truncated to fit and flagged, never dropped. The returned
// batches are sealed: callers must not mutate them.
func Pack(items []models.ContentItem, maxTokens int) []models.Batch {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var batches []models.Batch
	var current []models.BatchItem
	currentTokens := 0

	seal := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, models.Batch{
			Index:         len(batches),
			Items:         current,
			TokenEstimate: currentTokens,
		})
		current = nil
		currentTokens = 0
	}

	for _, item := range items {
		bi := fit(item, maxTokens)

		if currentTokens+bi.Tokens > maxTokens {
			seal()
		}
		current = append(current, bi)
		currentTokens += bi.Tokens
	}
	seal()

	return batches
}

// fit estimates an item's cost, truncating its body when the item alone
// would not fit in an empty batch.
func fit(item models.ContentItem, maxTokens int) models.BatchItem {
	tokens := EstimateTokens(item.Text())
	if tokens <= maxTokens {
		return models.BatchItem{Item: item, Tokens: tokens}
	}

	// Truncate body text only; the title survives intact.
	budget := maxTokens*charsPerToken - len(item.Title) - 2
	if budget < 0 {
		budget = 0
	}
	if budget < len(item.Body) {
		item.Body = item.Body[:budget]
	}

	return models.BatchItem{
		Item:      item,
		Tokens:    EstimateTokens(item.Text()),
		Truncated: true,
	}
}
