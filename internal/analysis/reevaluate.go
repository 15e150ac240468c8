package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/aggregate"
	"github.com/tickerpulse/tickerpulse/internal/batch"
	"github.com/tickerpulse/tickerpulse/internal/llm"
	"github.com/tickerpulse/tickerpulse/internal/models"
)

// Reevaluate re-runs the LLM stage over previously stored content for a
// single ticker and returns a fresh record. Items pass through the same
// filter and batcher as a live run, so a reevaluation under identical model
// output reproduces the original record.
func (p *Pipeline) Reevaluate(ctx context.Context, ticker string, items []models.ContentItem) (*models.FinalSentimentRecord, error) {
	ticker = strings.ToUpper(strings.TrimPrefix(ticker, "$"))
	if !p.symbols.IsValid(ticker) {
		if _, err := p.symbols.RefreshIfStale(ctx); err != nil {
			return nil, fmt.Errorf("load ticker set: %w", err)
		}
		if !p.symbols.IsValid(ticker) {
			return nil, fmt.Errorf("unknown ticker %q", ticker)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no stored content for %s", ticker)
	}

	kept := p.filterItems(items)
	if len(kept) == 0 {
		return nil, fmt.Errorf("no stored content for %s passed filtering", ticker)
	}

	batches := batch.Pack(kept, p.cfg.MaxTokensPerBatch)
	agg := aggregate.New(p.symbols)
	results := p.dispatch(ctx, batches, agg)

	stats := llm.Stats(results)
	if stats.Parsed == 0 {
		return nil, fmt.Errorf("reevaluate %s: no batch produced a usable response (%d abandoned, %d skipped)",
			ticker, stats.Abandoned, stats.Skipped)
	}

	for _, rec := range agg.Records(aggregate.SortByMentions) {
		if rec.Ticker == ticker {
			rec.Timeframe = "reeval"
			if p.persister != nil {
				if err := p.persister.SaveRecord(rec); err != nil {
					return nil, fmt.Errorf("persist reevaluation for %s: %w", ticker, err)
				}
			}
			return &rec, nil
		}
	}

	return nil, fmt.Errorf("reevaluate %s: model output contained no mentions of it", ticker)
}
