// Package analysis wires the pipeline: fetch, filter, batch, orchestrate,
// aggregate.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tickerpulse/tickerpulse/config"
	"github.com/tickerpulse/tickerpulse/internal/aggregate"
	"github.com/tickerpulse/tickerpulse/internal/batch"
	"github.com/tickerpulse/tickerpulse/internal/budget"
	"github.com/tickerpulse/tickerpulse/internal/filter"
	"github.com/tickerpulse/tickerpulse/internal/llm"
	"github.com/tickerpulse/tickerpulse/internal/models"
	"github.com/tickerpulse/tickerpulse/internal/tickers"
	"github.com/tickerpulse/tickerpulse/pkg/dataflows"
	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

// Fetcher yields content from the forum; satisfied by dataflows.RedditClient.
type Fetcher interface {
	TopPosts(subreddit, timeframe string, limit int) ([]models.ContentItem, error)
	PostComments(subreddit, postID string, limit int) ([]models.ContentItem, error)
}

// SymbolSource loads and answers the valid-ticker set; satisfied by
// tickers.Validator.
type SymbolSource interface {
	RefreshIfStale(ctx context.Context) (*tickers.TickerSet, error)
	IsValid(symbol string) bool
}

// Persister stores results; satisfied by sqlite.Store. May be nil.
type Persister interface {
	SaveRecord(rec models.FinalSentimentRecord) error
	SaveRawContent(ticker string, items []models.ContentItem) error
}

// RunRequest selects what one analysis run covers.
type RunRequest struct {
	Subreddits      []string
	Timeframe       string
	PostLimit       int
	CommentsPerPost int
	SortKey         aggregate.SortKey
}

// RunReport is the run outcome. Partial results are always usable; the
// counters qualify how complete they are.
type RunReport struct {
	Timeframe string
	Records   []models.FinalSentimentRecord

	ItemsFetched   int
	ItemsKept      int
	TruncatedItems int

	Batches          int
	BatchesParsed    int
	BatchesAbandoned int
	BatchesSkipped   int
	Attempts         int

	RejectedSymbols int
	ParseErrors     int
	BudgetRemaining int
}

// Pipeline holds the collaborators of one analysis run.
type Pipeline struct {
	cfg       *config.Config
	fetcher   Fetcher
	symbols   SymbolSource
	client    llm.Client
	tracker   *budget.Tracker
	roster    []models.ModelDescriptor
	persister Persister
}

// NewPipeline assembles a pipeline. persister may be nil to skip storage.
func NewPipeline(cfg *config.Config, fetcher Fetcher, symbols SymbolSource, client llm.Client, tracker *budget.Tracker, roster []models.ModelDescriptor, persister Persister) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		symbols:   symbols,
		client:    client,
		tracker:   tracker,
		roster:    roster,
		persister: persister,
	}
}

// Run executes one full analysis: fetch the requested subreddits, filter,
// batch, dispatch under the budget, and aggregate into per-ticker records.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	set, err := p.symbols.RefreshIfStale(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ticker set: %w", err)
	}
	logger.L().Infof("ticker set loaded: %d symbols", set.Len())

	items, err := p.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Timeframe: req.Timeframe, ItemsFetched: len(items)}

	kept := p.filterItems(items)
	report.ItemsKept = len(kept)
	logger.L().Infof("filter kept %d/%d items", len(kept), len(items))

	batches := batch.Pack(kept, p.cfg.MaxTokensPerBatch)
	report.Batches = len(batches)
	for _, b := range batches {
		for _, bi := range b.Items {
			if bi.Truncated {
				report.TruncatedItems++
			}
		}
	}

	agg := aggregate.New(p.symbols)
	results := p.dispatch(ctx, batches, agg)

	stats := llm.Stats(results)
	report.BatchesParsed = stats.Parsed
	report.BatchesAbandoned = stats.Abandoned
	report.BatchesSkipped = stats.Skipped
	report.Attempts = stats.Attempts

	report.Records = p.finishRecords(agg, req.SortKey, req.Timeframe)
	report.RejectedSymbols = agg.RejectedCount()
	report.ParseErrors = agg.ParseErrorCount()
	report.BudgetRemaining = p.tracker.Remaining()

	p.persist(report.Records, kept)

	return report, nil
}

// fetch pulls top posts (and optionally comments) for every requested
// subreddit. Auth failures and rate limiting abort the run; other per-
// subreddit errors are logged and skipped.
func (p *Pipeline) fetch(ctx context.Context, req RunRequest) ([]models.ContentItem, error) {
	var items []models.ContentItem

	for _, sub := range req.Subreddits {
		if ctx.Err() != nil {
			break
		}

		posts, err := p.fetcher.TopPosts(sub, req.Timeframe, req.PostLimit)
		if err != nil {
			if errors.Is(err, dataflows.ErrAuth) || errors.Is(err, dataflows.ErrRateLimited) {
				return nil, fmt.Errorf("fetch r/%s: %w", sub, err)
			}
			logger.L().Warnf("skipping r/%s: %v", sub, err)
			continue
		}
		items = append(items, posts...)

		if req.CommentsPerPost <= 0 {
			continue
		}
		for _, post := range posts {
			comments, err := p.fetcher.PostComments(sub, post.ID, req.CommentsPerPost)
			if err != nil {
				if errors.Is(err, dataflows.ErrAuth) || errors.Is(err, dataflows.ErrRateLimited) {
					return nil, fmt.Errorf("fetch comments r/%s/%s: %w", sub, post.ID, err)
				}
				logger.L().Debugf("skipping comments for %s: %v", post.ID, err)
				continue
			}
			items = append(items, comments...)
		}
	}

	return items, nil
}

func (p *Pipeline) filterItems(items []models.ContentItem) []models.ContentItem {
	f := filter.New(p.cfg.MinScore, p.cfg.MinCommentLength)

	var kept []models.ContentItem
	for _, item := range items {
		if d := f.ShouldProcess(item); d.Keep {
			kept = append(kept, item)
		}
	}
	return kept
}

// dispatch runs the orchestrator with the aggregator as sink.
func (p *Pipeline) dispatch(ctx context.Context, batches []models.Batch, agg *aggregate.Aggregator) []llm.BatchResult {
	orch := llm.NewOrchestrator(p.client, p.tracker, p.roster, p.cfg.Workers, p.cfg.RequestTimeout)

	sink := func(b models.Batch, resp *models.LLMResponse) error {
		errs := agg.Merge(b, resp)
		for _, err := range errs {
			if errors.Is(err, aggregate.ErrUnparseable) {
				return err
			}
			logger.L().Debugf("merge: %v", err)
		}
		return nil
	}

	return orch.Dispatch(ctx, batches, sink)
}

func (p *Pipeline) finishRecords(agg *aggregate.Aggregator, key aggregate.SortKey, timeframe string) []models.FinalSentimentRecord {
	records := agg.Records(key)
	for i := range records {
		records[i].Timeframe = timeframe
	}
	return records
}

// persist stores records and the raw items that mentioned each ticker.
// Storage failures degrade the run to display-only instead of failing it.
func (p *Pipeline) persist(records []models.FinalSentimentRecord, kept []models.ContentItem) {
	if p.persister == nil {
		return
	}

	for _, rec := range records {
		if err := p.persister.SaveRecord(rec); err != nil {
			logger.L().Warnf("persist %s: %v", rec.Ticker, err)
			continue
		}
		mentioning := itemsMentioning(kept, rec.Ticker)
		if err := p.persister.SaveRawContent(rec.Ticker, mentioning); err != nil {
			logger.L().Warnf("persist raw content for %s: %v", rec.Ticker, err)
		}
	}
}

// itemsMentioning returns the items whose text plausibly mentions symbol.
func itemsMentioning(items []models.ContentItem, symbol string) []models.ContentItem {
	symbol = strings.ToUpper(symbol)
	re := regexp.MustCompile(`(^|[^A-Z$])\$?` + regexp.QuoteMeta(symbol) + `($|[^A-Z])`)

	var matched []models.ContentItem
	for _, item := range items {
		text := strings.ToUpper(item.Text())
		if re.MatchString(text) {
			matched = append(matched, item)
		}
	}
	return matched
}
