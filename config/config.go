package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSubreddits is the roster of stock discussion subreddits the tracker
// monitors, ordered by activity. CLI selections index into this list.
var DefaultSubreddits = []string{
	"wallstreetbets",
	"stocks",
	"investing",
	"StockMarket",
	"options",
	"pennystocks",
	"Daytrading",
	"swingtrading",
	"RobinHood",
	"SecurityAnalysis",
}

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	ResultsDir   string `json:"results_dir"`

	DatabasePath    string `json:"database_path"`
	BudgetPath      string `json:"budget_path"`
	TickerCachePath string `json:"ticker_cache_path"`

	OpenRouterAPIKey string `json:"openrouter_api_key"`
	OpenRouterURL    string `json:"openrouter_url"`
	RedditUserAgent  string `json:"reddit_user_agent"`

	Subreddits []string `json:"subreddits"`

	MinScore          int           `json:"min_score"`
	MinCommentLength  int           `json:"min_comment_length"`
	PostLimit         int           `json:"post_limit"`
	CommentsPerPost   int           `json:"comments_per_post"`
	MaxTokensPerBatch int           `json:"max_tokens_per_batch"`
	DailyRequestLimit int           `json:"daily_request_limit"`
	Workers           int           `json:"workers"`
	RequestTimeout    time.Duration `json:"request_timeout"`

	CacheEnabled bool   `json:"cache_enabled"`
	LogLevel     string `json:"log_level"`
}

// DefaultConfig builds the configuration from defaults, a .env file if one
// exists, and environment variable overrides.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		ResultsDir:   filepath.Join(currentDir, "results"),

		DatabasePath:    filepath.Join(currentDir, "data", "stocks.db"),
		BudgetPath:      filepath.Join(currentDir, "data", "request_budget.json"),
		TickerCachePath: filepath.Join(currentDir, "data", "cache", "valid_tickers.json"),

		OpenRouterURL:   "https://openrouter.ai/api/v1",
		RedditUserAgent: "TickerPulse/1.0",

		Subreddits: append([]string(nil), DefaultSubreddits...),

		MinScore:          10,
		MinCommentLength:  40,
		PostLimit:         100,
		CommentsPerPost:   5,
		MaxTokensPerBatch: 98000,
		DailyRequestLimit: 1000,
		Workers:           3,
		RequestTimeout:    60 * time.Second,

		CacheEnabled: true,
		LogLevel:     "info",
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("OPENROUTER_API_KEY"); val != "" {
		c.OpenRouterAPIKey = val
	}
	if val := os.Getenv("OPENROUTER_URL"); val != "" {
		c.OpenRouterURL = val
	}
	if val := os.Getenv("REDDIT_USER_AGENT"); val != "" {
		c.RedditUserAgent = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DataCacheDir = filepath.Join(val, "cache")
		c.DatabasePath = filepath.Join(val, "stocks.db")
		c.BudgetPath = filepath.Join(val, "request_budget.json")
		c.TickerCachePath = filepath.Join(val, "cache", "valid_tickers.json")
	}
	if val := os.Getenv("DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("SUBREDDITS"); val != "" {
		parts := strings.Split(val, ",")
		subs := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				subs = append(subs, p)
			}
		}
		if len(subs) > 0 {
			c.Subreddits = subs
		}
	}
	if val := os.Getenv("MIN_SCORE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MinScore = n
		}
	}
	if val := os.Getenv("MAX_TOKENS_PER_BATCH"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.MaxTokensPerBatch = n
		}
	}
	if val := os.Getenv("DAILY_REQUEST_LIMIT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.DailyRequestLimit = n
		}
	}
	if val := os.Getenv("WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if val := os.Getenv("REQUEST_TIMEOUT_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = b
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

// EnsureDirectories creates the data directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir, c.ResultsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is not set")
	}
	if len(c.Subreddits) == 0 {
		return fmt.Errorf("no subreddits configured")
	}
	if c.MaxTokensPerBatch <= 0 {
		return fmt.Errorf("max tokens per batch must be positive")
	}
	return nil
}
