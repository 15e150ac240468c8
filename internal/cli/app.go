// Package cli implements the tickerpulse command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/tickerpulse/tickerpulse/config"
	"github.com/tickerpulse/tickerpulse/internal/analysis"
	"github.com/tickerpulse/tickerpulse/internal/budget"
	"github.com/tickerpulse/tickerpulse/internal/display"
	"github.com/tickerpulse/tickerpulse/internal/llm"
	"github.com/tickerpulse/tickerpulse/internal/storage/sqlite"
	"github.com/tickerpulse/tickerpulse/internal/tickers"
	"github.com/tickerpulse/tickerpulse/pkg/dataflows"
)

// App holds the wired collaborators shared by the CLI commands. Construction
// is lazy so read-only commands work without an API key.
type App struct {
	cfg      *config.Config
	renderer *display.Renderer

	validator *tickers.Validator
	reddit    *dataflows.RedditClient
	quotes    *dataflows.QuoteClient
	tracker   *budget.Tracker
	store     *sqlite.Store
}

func newApp(cfg *config.Config) *App {
	dfConfig := &dataflows.Config{
		DataCacheDir: cfg.DataCacheDir,
		CacheEnabled: cfg.CacheEnabled,
		UserAgent:    cfg.RedditUserAgent,
	}

	return &App{
		cfg:       cfg,
		renderer:  display.NewRenderer(),
		validator: tickers.NewValidator(cfg.TickerCachePath),
		reddit:    dataflows.NewRedditClient(dfConfig),
		quotes:    dataflows.NewQuoteClient(dfConfig),
	}
}

func (a *App) budgetTracker() (*budget.Tracker, error) {
	if a.tracker == nil {
		t, err := budget.NewTracker(a.cfg.BudgetPath, a.cfg.DailyRequestLimit)
		if err != nil {
			return nil, fmt.Errorf("open budget file: %w", err)
		}
		a.tracker = t
	}
	return a.tracker, nil
}

func (a *App) openStore() (*sqlite.Store, error) {
	if a.store == nil {
		s, err := sqlite.Open(a.cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.store = s
	}
	return a.store, nil
}

// pipeline wires the full analysis pipeline. It needs a valid API key.
func (a *App) pipeline(ctx context.Context) (*analysis.Pipeline, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	roster := llm.DefaultRoster()
	client, err := llm.NewOpenRouterClient(ctx, a.cfg.OpenRouterAPIKey, a.cfg.OpenRouterURL, roster)
	if err != nil {
		return nil, fmt.Errorf("init model clients: %w", err)
	}

	tracker, err := a.budgetTracker()
	if err != nil {
		return nil, err
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	return analysis.NewPipeline(a.cfg, a.reddit, a.validator, client, tracker, roster, store), nil
}

func (a *App) close() {
	if a.store != nil {
		a.store.Close()
	}
}
