package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tickerpulse/tickerpulse/config"
	"github.com/tickerpulse/tickerpulse/internal/aggregate"
	"github.com/tickerpulse/tickerpulse/internal/analysis"
	"github.com/tickerpulse/tickerpulse/internal/display"
	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

const version = "1.0.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	app := newApp(cfg)

	rootCmd := &cobra.Command{
		Use:   "tickerpulse",
		Short: "TickerPulse - Reddit stock mention sentiment tracker",
		Long: `TickerPulse scans stock discussion subreddits, extracts ticker mentions,
and scores sentiment per ticker with a rotation of free OpenRouter models
under a persistent daily request budget.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			logger.SetLevel(cfg.LogLevel)
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logger.SetLevel("debug")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(app)
		},
	}

	rootCmd.AddCommand(newTrackCmd(app))
	rootCmd.AddCommand(newSentimentCmd(app))
	rootCmd.AddCommand(newTickersCmd(app))
	rootCmd.AddCommand(newBudgetCmd(app))
	rootCmd.AddCommand(newSubredditsCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

func newTrackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run a full mention analysis across the configured subreddits",
		Long: `Fetch top posts and comments from the configured subreddits, filter out
low-signal content, batch it, and score ticker sentiment with the model
rotation. Partial results are reported when the budget or models run out.

Example: tickerpulse track --timeframe=week --select=1,3-5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeframe, _ := cmd.Flags().GetString("timeframe")
			selectExpr, _ := cmd.Flags().GetString("select")
			subsFlag, _ := cmd.Flags().GetString("subreddits")
			sortFlag, _ := cmd.Flags().GetString("sort")

			if !isValidTimeframe(timeframe) {
				return fmt.Errorf("invalid timeframe %q (one of: %s)", timeframe, strings.Join(validTimeframes, ", "))
			}

			subreddits, err := resolveSubreddits(app.cfg, selectExpr, subsFlag)
			if err != nil {
				return err
			}

			sortKey := aggregate.SortByMentions
			if sortFlag == "sentiment" {
				sortKey = aggregate.SortBySentiment
			}

			applyTrackOverrides(app.cfg, cmd)

			save, _ := cmd.Flags().GetBool("save")
			return runTrack(app, subreddits, timeframe, sortKey, save)
		},
	}

	cmd.Flags().String("timeframe", "day", "Top listing window: hour, day, week, month, year, all")
	cmd.Flags().String("select", "", `Pick subreddits from the configured list by position, e.g. "1,3-5,8"`)
	cmd.Flags().String("subreddits", "", "Comma separated subreddit names, overrides --select")
	cmd.Flags().String("sort", "mentions", "Result ordering: mentions or sentiment")
	cmd.Flags().Bool("save", false, "Also write the report as markdown into the results directory")
	cmd.Flags().Int("limit", 0, "Posts to fetch per subreddit (0 uses the configured value)")
	cmd.Flags().Int("min-score", -1, "Minimum post/comment score to keep (-1 uses the configured value)")
	cmd.Flags().Int("comments", -1, "Comments to fetch per post (-1 uses the configured value)")
	cmd.Flags().Int("budget", 0, "Daily request limit override (0 uses the configured value)")
	cmd.Flags().Int("workers", 0, "Concurrent batch workers (0 uses the configured value)")

	return cmd
}

func newSentimentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentiment TICKER",
		Short: "Show the stored sentiment record for a ticker",
		Long: `Show the stored sentiment for a ticker alongside its current quote.
With --reevaluate the stored raw content is re-scored through the model
rotation and the record is refreshed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reeval, _ := cmd.Flags().GetBool("reevaluate")
			return runSentiment(app, args[0], reeval)
		},
	}

	cmd.Flags().Bool("reevaluate", false, "Re-score the stored content for this ticker")
	return cmd
}

func newTickersCmd(app *App) *cobra.Command {
	tickersCmd := &cobra.Command{
		Use:   "tickers",
		Short: "Manage the valid ticker symbol set",
	}

	tickersCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Force a refresh of the ticker set from the exchange lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.validator.ForceRefresh(signalContext())
			if err != nil {
				return fmt.Errorf("refresh ticker set: %w", err)
			}
			app.renderer.Info(fmt.Sprintf("Ticker set refreshed: %d symbols", set.Len()))
			return nil
		},
	})

	tickersCmd.AddCommand(&cobra.Command{
		Use:   "check SYMBOL",
		Short: "Check whether a symbol is in the valid ticker set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimPrefix(args[0], "$"))
			if _, err := app.validator.RefreshIfStale(signalContext()); err != nil {
				return fmt.Errorf("load ticker set: %w", err)
			}
			if app.validator.IsValid(symbol) {
				app.renderer.Info(fmt.Sprintf("%s is a listed symbol", symbol))
			} else {
				app.renderer.Info(fmt.Sprintf("%s is not in the ticker set", symbol))
			}
			return nil
		},
	})

	return tickersCmd
}

func newBudgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show today's request budget usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := app.budgetTracker()
			if err != nil {
				return err
			}
			app.renderer.Budget(tracker.Snapshot())
			return nil
		},
	}
}

func newSubredditsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "subreddits",
		Short: "List the configured subreddits",
		Run: func(cmd *cobra.Command, args []string) {
			for i, sub := range app.cfg.Subreddits {
				fmt.Printf("%2d. r/%s\n", i+1, sub)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(app.cfg)
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tickerpulse v%s\n", version)
		},
	}
}

// applyTrackOverrides copies the track tuning flags onto the config before
// the pipeline is wired. Sentinel defaults leave the config untouched.
func applyTrackOverrides(cfg *config.Config, cmd *cobra.Command) {
	if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
		cfg.PostLimit = n
	}
	if n, _ := cmd.Flags().GetInt("min-score"); n >= 0 {
		cfg.MinScore = n
	}
	if n, _ := cmd.Flags().GetInt("comments"); n >= 0 {
		cfg.CommentsPerPost = n
	}
	if n, _ := cmd.Flags().GetInt("budget"); n > 0 {
		cfg.DailyRequestLimit = n
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Workers = n
	}
}

// resolveSubreddits applies --subreddits or a --select expression against the
// configured list. Both empty means the whole list.
func resolveSubreddits(cfg *config.Config, selectExpr, subsFlag string) ([]string, error) {
	if subsFlag != "" {
		var subs []string
		for _, s := range strings.Split(subsFlag, ",") {
			if s = strings.TrimSpace(strings.TrimPrefix(s, "r/")); s != "" {
				subs = append(subs, s)
			}
		}
		if len(subs) == 0 {
			return nil, fmt.Errorf("no subreddits in %q", subsFlag)
		}
		return subs, nil
	}

	if selectExpr == "" {
		return cfg.Subreddits, nil
	}

	indices, err := ParseSelection(selectExpr, len(cfg.Subreddits))
	if err != nil {
		return nil, err
	}
	subs := make([]string, 0, len(indices))
	for _, i := range indices {
		subs = append(subs, cfg.Subreddits[i])
	}
	return subs, nil
}

func runTrack(app *App, subreddits []string, timeframe string, sortKey aggregate.SortKey, save bool) error {
	ctx := signalContext()

	pipeline, err := app.pipeline(ctx)
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx, analysis.RunRequest{
		Subreddits:      subreddits,
		Timeframe:       timeframe,
		PostLimit:       app.cfg.PostLimit,
		CommentsPerPost: app.cfg.CommentsPerPost,
		SortKey:         sortKey,
	})
	if err != nil {
		return err
	}

	app.renderer.RunReport(report)

	if save {
		path, err := display.ExportMarkdown(report, app.cfg.ResultsDir)
		if err != nil {
			return err
		}
		app.renderer.Info("Report saved to " + path)
	}
	return nil
}

func runSentiment(app *App, ticker string, reevaluate bool) error {
	ctx := signalContext()
	ticker = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(ticker), "$"))

	store, err := app.openStore()
	if err != nil {
		return err
	}

	if reevaluate {
		items, err := store.RawContentForTicker(ticker)
		if err != nil {
			return fmt.Errorf("load stored content: %w", err)
		}

		pipeline, err := app.pipeline(ctx)
		if err != nil {
			return err
		}
		rec, err := pipeline.Reevaluate(ctx, ticker, items)
		if err != nil {
			return err
		}
		app.renderer.Record(rec)
	} else {
		rec, err := store.LatestRecord(ticker)
		if err != nil {
			return fmt.Errorf("load record: %w", err)
		}
		if rec == nil {
			return fmt.Errorf("no stored analysis for %s, run 'tickerpulse track' first", ticker)
		}
		app.renderer.Record(rec)
	}

	if q, err := app.quotes.GetQuote(ticker); err == nil {
		app.renderer.Quote(q.Symbol, q.Price.StringFixed(2), q.ChangePercent.StringFixed(2))
	} else {
		logger.L().Debugf("quote lookup for %s: %v", ticker, err)
	}

	return nil
}

func showConfig(cfg *config.Config) {
	fmt.Println("Current configuration:")
	fmt.Printf("  Data directory:       %s\n", cfg.DataDir)
	fmt.Printf("  Database:             %s\n", cfg.DatabasePath)
	fmt.Printf("  Budget file:          %s\n", cfg.BudgetPath)
	fmt.Printf("  Ticker cache:         %s\n", cfg.TickerCachePath)
	fmt.Println()
	fmt.Printf("  Subreddits:           %s\n", strings.Join(cfg.Subreddits, ", "))
	fmt.Printf("  Min post score:       %d\n", cfg.MinScore)
	fmt.Printf("  Min comment length:   %d\n", cfg.MinCommentLength)
	fmt.Printf("  Posts per subreddit:  %d\n", cfg.PostLimit)
	fmt.Printf("  Comments per post:    %d\n", cfg.CommentsPerPost)
	fmt.Println()
	fmt.Printf("  Max tokens per batch: %d\n", cfg.MaxTokensPerBatch)
	fmt.Printf("  Daily request limit:  %d\n", cfg.DailyRequestLimit)
	fmt.Printf("  Workers:              %d\n", cfg.Workers)
	fmt.Printf("  Request timeout:      %s\n", cfg.RequestTimeout)
	fmt.Println()
	fmt.Printf("  Cache enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("  Log level:            %s\n", cfg.LogLevel)
	if cfg.OpenRouterAPIKey != "" {
		fmt.Println("  OpenRouter API:       configured")
	} else {
		fmt.Println("  OpenRouter API:       NOT configured (set OPENROUTER_API_KEY)")
	}
}

// signalContext returns a context cancelled by SIGINT or SIGTERM so an
// interrupted run still reports what it aggregated.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
