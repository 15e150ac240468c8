package tickers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

// DefaultSources are the exchange symbol lists of the US-Stock-Symbols
// repository, refreshed upstream nightly.
var DefaultSources = map[string]string{
	"nasdaq": "https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/nasdaq/nasdaq_tickers.txt",
	"nyse":   "https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/nyse/nyse_tickers.txt",
	"amex":   "https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/amex/amex_tickers.txt",
}

// CacheTTL is how long a fetched ticker set stays fresh.
const CacheTTL = 24 * time.Hour

// ErrDataUnavailable indicates no ticker set could be fetched and no cached
// set exists. Fatal for an analysis run.
var ErrDataUnavailable = errors.New("ticker data unavailable")

// TickerSet is an immutable set of valid uppercase ticker symbols tagged
// with its fetch time.
type TickerSet struct {
	FetchedAt time.Time           `json:"timestamp"`
	Symbols   map[string]struct{} `json:"-"`
}

// cacheFile is the persisted form of a TickerSet.
type cacheFile struct {
	Timestamp time.Time `json:"timestamp"`
	Tickers   []string  `json:"tickers"`
}

// Stale reports whether the set is older than the cache TTL.
func (ts *TickerSet) Stale() bool {
	return time.Since(ts.FetchedAt) > CacheTTL
}

// Len returns the number of symbols in the set.
func (ts *TickerSet) Len() int { return len(ts.Symbols) }

// Validator answers ticker membership queries against the cached set,
// refreshing it from the remote sources when stale.
type Validator struct {
	mu        sync.RWMutex
	set       *TickerSet
	client    *resty.Client
	sources   map[string]string
	cachePath string
}

// Option configures a Validator.
type Option func(*Validator)

// WithSources overrides the remote symbol list URLs, used by tests.
func WithSources(sources map[string]string) Option {
	return func(v *Validator) { v.sources = sources }
}

// NewValidator creates a validator persisting its cache at cachePath.
func NewValidator(cachePath string, opts ...Option) *Validator {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	v := &Validator{
		client:    client,
		sources:   DefaultSources,
		cachePath: cachePath,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsValid reports whether symbol is in the current ticker set. Symbols are
// matched case-insensitively. Returns false when no set is loaded.
func (v *Validator) IsValid(symbol string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.set == nil {
		return false
	}
	_, ok := v.set.Symbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// RefreshIfStale loads the ticker set, fetching from the remote sources when
// the cache is missing or older than 24 hours. On fetch failure it falls back
// to the last cached set regardless of age; with no cache either, it returns
// ErrDataUnavailable.
func (v *Validator) RefreshIfStale(ctx context.Context) (*TickerSet, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.set != nil && !v.set.Stale() {
		return v.set, nil
	}

	if cached, err := v.loadCache(); err == nil && !cached.Stale() {
		logger.L().Debugf("using cached ticker list (%d tickers)", cached.Len())
		v.set = cached
		return v.set, nil
	}

	fetched, err := v.fetch(ctx)
	if err != nil {
		// Fall back to a stale cache rather than failing the run.
		if cached, cerr := v.loadCache(); cerr == nil {
			logger.L().Warnf("ticker fetch failed, using stale cache: %v", err)
			v.set = cached
			return v.set, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if err := v.saveCache(fetched); err != nil {
		logger.L().Warnf("ticker cache write failed: %v", err)
	}
	v.set = fetched
	return v.set, nil
}

// ForceRefresh discards the cache and fetches a fresh ticker set.
func (v *Validator) ForceRefresh(ctx context.Context) (*TickerSet, error) {
	v.mu.Lock()
	v.set = nil
	os.Remove(v.cachePath)
	v.mu.Unlock()

	return v.RefreshIfStale(ctx)
}

// fetch downloads and merges the newline-separated exchange lists.
func (v *Validator) fetch(ctx context.Context) (*TickerSet, error) {
	symbols := make(map[string]struct{})

	for exchange, url := range v.sources {
		resp, err := v.client.R().SetContext(ctx).Get(url)
		if err != nil {
			logger.L().Warnf("failed to fetch %s tickers: %v", exchange, err)
			continue
		}
		if resp.StatusCode() != 200 {
			logger.L().Warnf("HTTP error %d fetching %s tickers", resp.StatusCode(), exchange)
			continue
		}

		count := 0
		for _, line := range strings.Split(string(resp.Body()), "\n") {
			sym := strings.ToUpper(strings.TrimSpace(line))
			if sym == "" {
				continue
			}
			symbols[sym] = struct{}{}
			count++
		}
		logger.L().Debugf("fetched %d tickers from %s", count, strings.ToUpper(exchange))
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("no tickers fetched from any source")
	}

	return &TickerSet{FetchedAt: time.Now().UTC(), Symbols: symbols}, nil
}

func (v *Validator) loadCache() (*TickerSet, error) {
	data, err := os.ReadFile(v.cachePath)
	if err != nil {
		return nil, err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse ticker cache: %w", err)
	}

	symbols := make(map[string]struct{}, len(cf.Tickers))
	for _, sym := range cf.Tickers {
		symbols[strings.ToUpper(sym)] = struct{}{}
	}
	return &TickerSet{FetchedAt: cf.Timestamp, Symbols: symbols}, nil
}

func (v *Validator) saveCache(set *TickerSet) error {
	cf := cacheFile{Timestamp: set.FetchedAt, Tickers: make([]string, 0, len(set.Symbols))}
	for sym := range set.Symbols {
		cf.Tickers = append(cf.Tickers, sym)
	}

	data, err := json.Marshal(cf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(v.cachePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(v.cachePath, data, 0o644)
}
