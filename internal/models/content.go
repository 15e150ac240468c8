package models

import "time"

// ContentItem is one Reddit post or comment, immutable once fetched.
type ContentItem struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	Flair     string    `json:"flair,omitempty"`
	IsComment bool      `json:"is_comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the item content the pipeline analyzes: title plus body for
// posts, body alone for comments.
func (c ContentItem) Text() string {
	if c.Title == "" {
		return c.Body
	}
	if c.Body == "" {
		return c.Title
	}
	return c.Title + "\n\n" + c.Body
}

// BatchItem wraps a ContentItem inside a batch together with its token
// estimate. Truncated is set when the item alone exceeded the batch ceiling
// and its body was cut to fit.
type BatchItem struct {
	Item      ContentItem `json:"item"`
	Tokens    int         `json:"tokens"`
	Truncated bool        `json:"truncated,omitempty"`
}

// Batch is a token-budgeted group of content items sent to the LLM in one
// request. It is sealed once built by the batcher; nothing mutates it after.
type Batch struct {
	Index         int         `json:"index"`
	Items         []BatchItem `json:"items"`
	TokenEstimate int         `json:"token_estimate"`
}

// Len returns the number of items in the batch.
func (b Batch) Len() int { return len(b.Items) }
