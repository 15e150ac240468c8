// Package sqlite persists analysis results and raw content for the
// re-evaluation workflow.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and initializes
// the schema.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS stock_mentions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			subreddit TEXT NOT NULL,
			mention_count INTEGER NOT NULL,
			timeframe TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_ticker_timeframe
			ON stock_mentions(ticker, timeframe)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			total_mentions INTEGER NOT NULL,
			subreddit_mentions TEXT NOT NULL,
			average_sentiment REAL NOT NULL,
			positive INTEGER NOT NULL,
			neutral INTEGER NOT NULL,
			negative INTEGER NOT NULL,
			sentiment_score REAL NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(ticker, timeframe)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_content (
			content_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			subreddit TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			score INTEGER NOT NULL,
			flair TEXT NOT NULL DEFAULT '',
			is_comment INTEGER NOT NULL DEFAULT 0,
			source_created_at TEXT NOT NULL,
			stored_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (ticker, content_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_content_ticker
			ON raw_content(ticker)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRecord upserts one final sentiment record and its per-subreddit
// mention rows. Re-saving the same (ticker, timeframe) bumps the version.
func (s *Store) SaveRecord(rec models.FinalSentimentRecord) error {
	subs, err := json.Marshal(rec.SubredditMentions)
	if err != nil {
		return fmt.Errorf("marshal subreddit mentions: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO analyses
			(ticker, timeframe, total_mentions, subreddit_mentions,
			 average_sentiment, positive, neutral, negative, sentiment_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, timeframe) DO UPDATE SET
			total_mentions = excluded.total_mentions,
			subreddit_mentions = excluded.subreddit_mentions,
			average_sentiment = excluded.average_sentiment,
			positive = excluded.positive,
			neutral = excluded.neutral,
			negative = excluded.negative,
			sentiment_score = excluded.sentiment_score,
			version = analyses.version + 1,
			updated_at = datetime('now')`,
		rec.Ticker, rec.Timeframe, rec.TotalMentions, string(subs),
		rec.AverageSentiment, rec.Breakdown.Positive, rec.Breakdown.Neutral,
		rec.Breakdown.Negative, rec.SentimentScore)
	if err != nil {
		return fmt.Errorf("upsert analysis for %s: %w", rec.Ticker, err)
	}

	for subreddit, count := range rec.SubredditMentions {
		if _, err := tx.Exec(`
			INSERT INTO stock_mentions (ticker, subreddit, mention_count, timeframe)
			VALUES (?, ?, ?, ?)`,
			rec.Ticker, subreddit, count, rec.Timeframe); err != nil {
			return fmt.Errorf("insert mentions for %s/%s: %w", rec.Ticker, subreddit, err)
		}
	}

	return tx.Commit()
}

// SaveRawContent stores the items that mentioned ticker so a later
// re-evaluation can replay them without re-fetching from the forum.
func (s *Store) SaveRawContent(ticker string, items []models.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO raw_content
			(content_id, ticker, subreddit, title, body, score, flair, is_comment, source_created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare raw content insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		isComment := 0
		if item.IsComment {
			isComment = 1
		}
		if _, err := stmt.Exec(item.ID, strings.ToUpper(ticker), item.Subreddit,
			item.Title, item.Body, item.Score, item.Flair, isComment,
			item.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert raw content %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// RawContentForTicker returns the stored items for a ticker, oldest first.
func (s *Store) RawContentForTicker(ticker string) ([]models.ContentItem, error) {
	rows, err := s.db.Query(`
		SELECT content_id, subreddit, title, body, score, flair, is_comment, source_created_at
		FROM raw_content
		WHERE ticker = ?
		ORDER BY source_created_at`, strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("query raw content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		var isComment int
		var created string
		if err := rows.Scan(&item.ID, &item.Subreddit, &item.Title, &item.Body,
			&item.Score, &item.Flair, &isComment, &created); err != nil {
			return nil, fmt.Errorf("scan raw content: %w", err)
		}
		item.IsComment = isComment == 1
		if ts, perr := time.Parse(time.RFC3339, created); perr == nil {
			item.CreatedAt = ts
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// TopMentions returns the most-mentioned tickers for a timeframe.
func (s *Store) TopMentions(timeframe string, limit int) ([]models.FinalSentimentRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT ticker, timeframe, total_mentions, subreddit_mentions,
		       average_sentiment, positive, neutral, negative, sentiment_score
		FROM analyses
		WHERE timeframe = ?
		ORDER BY total_mentions DESC
		LIMIT ?`, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var records []models.FinalSentimentRecord
	for rows.Next() {
		var rec models.FinalSentimentRecord
		var subs string
		if err := rows.Scan(&rec.Ticker, &rec.Timeframe, &rec.TotalMentions, &subs,
			&rec.AverageSentiment, &rec.Breakdown.Positive, &rec.Breakdown.Neutral,
			&rec.Breakdown.Negative, &rec.SentimentScore); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(subs), &rec.SubredditMentions); err != nil {
			rec.SubredditMentions = map[string]int{}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRecord returns the most recently updated record for a ticker across
// timeframes, or nil when none exists.
func (s *Store) LatestRecord(ticker string) (*models.FinalSentimentRecord, error) {
	row := s.db.QueryRow(`
		SELECT ticker, timeframe, total_mentions, subreddit_mentions,
		       average_sentiment, positive, neutral, negative, sentiment_score
		FROM analyses
		WHERE ticker = ?
		ORDER BY updated_at DESC
		LIMIT 1`, strings.ToUpper(ticker))

	var rec models.FinalSentimentRecord
	var subs string
	err := row.Scan(&rec.Ticker, &rec.Timeframe, &rec.TotalMentions, &subs,
		&rec.AverageSentiment, &rec.Breakdown.Positive, &rec.Breakdown.Neutral,
		&rec.Breakdown.Negative, &rec.SentimentScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(subs), &rec.SubredditMentions); err != nil {
		rec.SubredditMentions = map[string]int{}
	}
	return &rec, nil
}

// AnalysisVersion returns the stored version for a (ticker, timeframe), or 0
// when none exists.
func (s *Store) AnalysisVersion(ticker, timeframe string) (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT version FROM analyses WHERE ticker = ? AND timeframe = ?`,
		strings.ToUpper(ticker), timeframe).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query analysis version: %w", err)
	}
	return version, nil
}
