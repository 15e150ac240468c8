package dataflows

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// Quote is a spot quote used to enrich the sentiment report.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// QuoteClient fetches spot quotes from Yahoo Finance.
type QuoteClient struct {
	cache *CacheManager
}

// NewQuoteClient creates a new quote client.
func NewQuoteClient(config *Config) *QuoteClient {
	cacheDir := filepath.Join(config.DataCacheDir, "quotes")
	cache := NewCacheManager(cacheDir, 15*time.Minute, config.CacheEnabled)

	return &QuoteClient{cache: cache}
}

// GetQuote gets the current quote for a symbol.
func (qc *QuoteClient) GetQuote(symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}

	var cached Quote
	if qc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *Quote
	err := WithRetry(DefaultRetryConfig(), func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}

		result = &Quote{
			Symbol:        symbol,
			Price:         decimal.NewFromFloat(q.RegularMarketPrice),
			ChangePercent: decimal.NewFromFloat(q.RegularMarketChangePercent),
			FetchedAt:     time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	qc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}
