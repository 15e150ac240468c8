package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tickerpulse/tickerpulse/config"
	"github.com/tickerpulse/tickerpulse/internal/aggregate"
	"github.com/tickerpulse/tickerpulse/internal/budget"
	"github.com/tickerpulse/tickerpulse/internal/models"
	"github.com/tickerpulse/tickerpulse/internal/tickers"
)

// stubFetcher serves a fixed item list for any subreddit.
type stubFetcher struct {
	posts []models.ContentItem
}

func (f *stubFetcher) TopPosts(subreddit, timeframe string, limit int) ([]models.ContentItem, error) {
	return f.posts, nil
}

func (f *stubFetcher) PostComments(subreddit, postID string, limit int) ([]models.ContentItem, error) {
	return nil, nil
}

// stubSymbols validates a fixed set without any network access.
type stubSymbols struct {
	symbols map[string]struct{}
}

func (s *stubSymbols) RefreshIfStale(ctx context.Context) (*tickers.TickerSet, error) {
	return &tickers.TickerSet{FetchedAt: time.Now().UTC(), Symbols: s.symbols}, nil
}

func (s *stubSymbols) IsValid(symbol string) bool {
	_, ok := s.symbols[strings.ToUpper(symbol)]
	return ok
}

// rotationClient fails for the models named in failing and answers with a
// fixed deterministic payload otherwise.
type rotationClient struct {
	failing map[string]bool
	content string
}

func (c *rotationClient) Send(ctx context.Context, b models.Batch, md models.ModelDescriptor) (*models.LLMResponse, error) {
	if c.failing[md.ID] {
		return nil, fmt.Errorf("model %s unavailable", md.ID)
	}
	return &models.LLMResponse{Model: md, BatchIndex: b.Index, Content: c.content}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.DataCacheDir = filepath.Join(dir, "cache")
	cfg.BudgetPath = filepath.Join(dir, "budget.json")
	cfg.MinScore = 10
	cfg.MaxTokensPerBatch = 1000
	cfg.Workers = 2
	cfg.RequestTimeout = time.Second
	return cfg
}

func testRoster(n int) []models.ModelDescriptor {
	roster := make([]models.ModelDescriptor, n)
	for i := range roster {
		roster[i] = models.ModelDescriptor{
			ID:          fmt.Sprintf("test/model-%d", i+1),
			DisplayName: fmt.Sprintf("model-%d", i+1),
			Priority:    i,
		}
	}
	return roster
}

// fiftyItems builds 50 posts where exactly 20 clear the score threshold, each
// sized so ten kept items fill one 1000-token batch.
func fiftyItems() []models.ContentItem {
	var items []models.ContentItem
	body := "NVDA " + strings.Repeat("earnings growth revenue margins ", 12)
	for i := 0; i < 50; i++ {
		score := 5
		if i < 20 {
			score = 50
		}
		items = append(items, models.ContentItem{
			ID:        fmt.Sprintf("p%d", i),
			Subreddit: "stocks",
			Body:      body,
			Score:     score,
		})
	}
	return items
}

func TestRunEndToEndWithModelRotation(t *testing.T) {
	cfg := testConfig(t)
	tracker, err := budget.NewTracker(cfg.BudgetPath, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	client := &rotationClient{
		failing: map[string]bool{"test/model-1": true},
		content: `{"mentions":[{"ticker":"NVDA","sentiment":"positive","numericScore":0.8,"snippet":"strong quarter"}]}`,
	}
	symbols := &stubSymbols{symbols: map[string]struct{}{"NVDA": {}}}
	fetcher := &stubFetcher{posts: fiftyItems()}

	p := NewPipeline(cfg, fetcher, symbols, client, tracker, testRoster(5), nil)

	report, err := p.Run(context.Background(), RunRequest{
		Subreddits: []string{"stocks"},
		Timeframe:  "day",
		PostLimit:  100,
		SortKey:    aggregate.SortByMentions,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.ItemsFetched != 50 {
		t.Fatalf("ItemsFetched = %d, want 50", report.ItemsFetched)
	}
	if report.ItemsKept != 20 {
		t.Fatalf("ItemsKept = %d, want 20", report.ItemsKept)
	}
	if report.Batches != 2 {
		t.Fatalf("Batches = %d, want 2", report.Batches)
	}
	if report.BatchesAbandoned != 0 || report.BatchesSkipped != 0 {
		t.Fatalf("abandoned=%d skipped=%d, want 0/0", report.BatchesAbandoned, report.BatchesSkipped)
	}
	// Model 1 fails once per batch, model 2 succeeds: 4 requests total.
	if report.Attempts != 4 {
		t.Fatalf("Attempts = %d, want 4", report.Attempts)
	}
	if report.BudgetRemaining != 96 {
		t.Fatalf("BudgetRemaining = %d, want 96", report.BudgetRemaining)
	}

	if len(report.Records) != 1 || report.Records[0].Ticker != "NVDA" {
		t.Fatalf("unexpected records: %+v", report.Records)
	}
	if report.Records[0].Timeframe != "day" {
		t.Fatalf("record timeframe = %q, want day", report.Records[0].Timeframe)
	}
	if report.Records[0].TotalMentions != 2 {
		t.Fatalf("TotalMentions = %d, want 2 (one per batch)", report.Records[0].TotalMentions)
	}
}

func TestRunPartialResultsWhenBudgetRunsOut(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 1
	tracker, err := budget.NewTracker(cfg.BudgetPath, 1)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	client := &rotationClient{
		content: `{"mentions":[{"ticker":"NVDA","sentiment":"positive"}]}`,
	}
	symbols := &stubSymbols{symbols: map[string]struct{}{"NVDA": {}}}
	fetcher := &stubFetcher{posts: fiftyItems()}

	p := NewPipeline(cfg, fetcher, symbols, client, tracker, testRoster(3), nil)

	report, err := p.Run(context.Background(), RunRequest{
		Subreddits: []string{"stocks"},
		Timeframe:  "day",
		PostLimit:  100,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.BatchesParsed != 1 || report.BatchesSkipped != 1 {
		t.Fatalf("parsed=%d skipped=%d, want 1/1", report.BatchesParsed, report.BatchesSkipped)
	}
	if len(report.Records) != 1 {
		t.Fatalf("partial run should still emit records, got %d", len(report.Records))
	}
	if report.BudgetRemaining != 0 {
		t.Fatalf("BudgetRemaining = %d, want 0", report.BudgetRemaining)
	}
}

func TestReevaluateIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	tracker, err := budget.NewTracker(cfg.BudgetPath, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	client := &rotationClient{
		content: `{"mentions":[
			{"ticker":"NVDA","sentiment":"positive","numericScore":0.7,"subreddit":"stocks","snippet":"guidance raised"},
			{"ticker":"NVDA","sentiment":"negative","numericScore":-0.4,"subreddit":"stocks","snippet":"priced in"}
		]}`,
	}
	symbols := &stubSymbols{symbols: map[string]struct{}{"NVDA": {}}}
	p := NewPipeline(cfg, &stubFetcher{}, symbols, client, tracker, testRoster(2), nil)

	items := fiftyItems()[:5]

	first, err := p.Reevaluate(context.Background(), "NVDA", items)
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	second, err := p.Reevaluate(context.Background(), "NVDA", items)
	if err != nil {
		t.Fatalf("Reevaluate again: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reevaluation not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first.TotalMentions != 2 {
		t.Fatalf("TotalMentions = %d, want 2", first.TotalMentions)
	}
}

func TestReevaluateUnknownTickerFails(t *testing.T) {
	cfg := testConfig(t)
	tracker, err := budget.NewTracker(cfg.BudgetPath, 100)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	symbols := &stubSymbols{symbols: map[string]struct{}{"NVDA": {}}}
	p := NewPipeline(cfg, &stubFetcher{}, symbols, &rotationClient{}, tracker, testRoster(1), nil)

	if _, err := p.Reevaluate(context.Background(), "ZZZZZ", fiftyItems()[:3]); err == nil {
		t.Fatalf("expected error for unknown ticker")
	}
}
