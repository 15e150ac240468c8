package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

// RedditClient fetches posts and comments from Reddit's public JSON API.
type RedditClient struct {
	client  *resty.Client
	cache   *CacheManager
	baseURL string
}

// NewRedditClient creates a new Reddit client.
func NewRedditClient(config *Config) *RedditClient {
	cacheDir := filepath.Join(config.DataCacheDir, "reddit")
	cache := NewCacheManager(cacheDir, 1*time.Hour, config.CacheEnabled) // 1 hour cache for Reddit

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "TickerPulse/1.0"
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", userAgent)

	return &RedditClient{
		client:  client,
		cache:   cache,
		baseURL: "https://www.reddit.com",
	}
}

// SetBaseURL points the client at a different host, used by tests.
func (rc *RedditClient) SetBaseURL(url string) {
	rc.baseURL = strings.TrimRight(url, "/")
}

// redditListing is the generic Reddit API listing envelope.
type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string        `json:"after"`
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Kind string         `json:"kind"`
	Data redditItemData `json:"data"`
}

// redditItemData covers the fields shared by posts (t3) and comments (t1).
type redditItemData struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Body          string  `json:"body"`
	Subreddit     string  `json:"subreddit"`
	Author        string  `json:"author"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	CreatedUTC    float64 `json:"created_utc"`
	LinkFlairText string  `json:"link_flair_text"`
	Stickied      bool    `json:"stickied"`
}

// TopPosts retrieves the top posts of a subreddit for a timeframe
// (hour, day, week, month, year, all), in Reddit's native top ordering.
func (rc *RedditClient) TopPosts(subreddit, timeframe string, limit int) ([]models.ContentItem, error) {
	if strings.TrimSpace(subreddit) == "" {
		return nil, fmt.Errorf("subreddit cannot be empty")
	}
	if timeframe == "" {
		timeframe = "day"
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("%s_%s_%d", subreddit, timeframe, limit)
	var cached []models.ContentItem
	if rc.cache.Get("subreddit", "top", cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/r/%s/top.json?t=%s&limit=%d", rc.baseURL, subreddit, timeframe, limit)

	var listing redditListing
	if err := rc.fetchJSON(url, &listing); err != nil {
		return nil, err
	}

	items := convertChildren(listing.Data.Children, "t3")
	rc.cache.Set("subreddit", "top", cacheKey, items)
	return items, nil
}

// PostComments retrieves up to limit top-level comments for a post.
func (rc *RedditClient) PostComments(subreddit, postID string, limit int) ([]models.ContentItem, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, fmt.Errorf("post id cannot be empty")
	}
	if limit <= 0 {
		limit = 25
	}

	cacheKey := fmt.Sprintf("%s_%s_%d", subreddit, postID, limit)
	var cached []models.ContentItem
	if rc.cache.Get("comments", "post", cacheKey, &cached) {
		return cached, nil
	}

	url := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&sort=top", rc.baseURL, subreddit, postID, limit)

	// The comments endpoint returns [postListing, commentListing].
	resp, err := rc.get(url)
	if err != nil {
		return nil, err
	}

	var listings []redditListing
	if err := json.Unmarshal(resp, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse Reddit JSON: %w", err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	items := convertChildren(listings[1].Data.Children, "t1")
	if len(items) > limit {
		items = items[:limit]
	}
	rc.cache.Set("comments", "post", cacheKey, items)
	return items, nil
}

// fetchJSON gets a URL and decodes the listing envelope.
func (rc *RedditClient) fetchJSON(url string, out *redditListing) error {
	body, err := rc.get(url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse Reddit JSON: %w", err)
	}
	return nil
}

// get performs the HTTP request. Auth failures and throttling are surfaced to
// the caller without retry; transient failures get the usual backoff.
func (rc *RedditClient) get(url string) ([]byte, error) {
	var body []byte
	var fatal error
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := rc.client.R().Get(url)
		if err != nil {
			return fmt.Errorf("failed to fetch from Reddit: %w", err)
		}

		switch code := resp.StatusCode(); {
		case code == 200:
			body = resp.Body()
			return nil
		case code == 401 || code == 403:
			fatal = fmt.Errorf("HTTP %d: %w", code, ErrAuth)
			return nil
		case code == 429:
			fatal = fmt.Errorf("HTTP %d: %w", code, ErrRateLimited)
			return nil
		default:
			return fmt.Errorf("HTTP error %d when fetching from Reddit", code)
		}
	})
	if fatal != nil {
		return nil, fatal
	}
	return body, err
}

// convertChildren maps Reddit API children of one kind to ContentItems.
func convertChildren(children []redditChild, kind string) []models.ContentItem {
	var items []models.ContentItem

	for _, child := range children {
		if child.Kind != kind {
			continue
		}

		data := child.Data
		if data.Stickied || data.Author == "[deleted]" {
			continue
		}

		item := models.ContentItem{
			ID:        data.ID,
			Subreddit: data.Subreddit,
			Score:     data.Score,
			CreatedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
		}

		if kind == "t1" {
			item.IsComment = true
			item.Body = data.Body
		} else {
			item.Title = data.Title
			item.Body = data.Selftext
			item.Flair = data.LinkFlairText
		}

		items = append(items, item)
	}

	return items
}
