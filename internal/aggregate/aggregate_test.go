package aggregate

import (
	"math"
	"testing"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

type staticChecker map[string]bool

func (c staticChecker) IsValid(symbol string) bool { return c[symbol] }

func respond(content string) *models.LLMResponse {
	return &models.LLMResponse{
		Model:   models.ModelDescriptor{ID: "test/model", DisplayName: "test"},
		Content: content,
	}
}

func testBatch() models.Batch {
	return models.Batch{
		Index: 0,
		Items: []models.BatchItem{
			{Item: models.ContentItem{ID: "p1", Subreddit: "stocks"}},
		},
	}
}

func TestMergeRejectsUnknownSymbols(t *testing.T) {
	agg := New(staticChecker{"NVDA": true})

	content := `{"mentions":[
		{"ticker":"NVDA","sentiment":"positive","snippet":"earnings beat"},
		{"ticker":"ZZZZZ","sentiment":"positive","snippet":"made up"}
	]}`

	errs := agg.Merge(testBatch(), respond(content))
	if len(errs) != 1 {
		t.Fatalf("expected 1 rejection error, got %d: %v", len(errs), errs)
	}
	if agg.RejectedCount() != 1 {
		t.Fatalf("RejectedCount = %d, want 1", agg.RejectedCount())
	}

	records := agg.Records(SortByMentions)
	if len(records) != 1 || records[0].Ticker != "NVDA" {
		t.Fatalf("expected only NVDA in records, got %+v", records)
	}
}

func TestMergeStripsDollarPrefixAndUppercases(t *testing.T) {
	agg := New(staticChecker{"GME": true})

	content := `{"mentions":[{"ticker":"$gme","sentiment":"positive","snippet":"squeeze"}]}`
	if errs := agg.Merge(testBatch(), respond(content)); len(errs) != 0 {
		t.Fatalf("unexpected merge errors: %v", errs)
	}

	records := agg.Records(SortByMentions)
	if len(records) != 1 || records[0].Ticker != "GME" {
		t.Fatalf("expected normalized GME record, got %+v", records)
	}
}

func TestSentimentScoreFormula(t *testing.T) {
	b := models.SentimentBreakdown{Positive: 6, Neutral: 3, Negative: 1}
	got := models.ComputeSentimentScore(b, 40)

	// base = (6-1)/10 = 0.5, weight = ln(41)
	want := 0.5 * math.Log(41)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ComputeSentimentScore = %f, want %f", got, want)
	}
	if math.Abs(got-1.856) > 0.002 {
		t.Fatalf("ComputeSentimentScore = %f, want about 1.856", got)
	}
}

func TestMergeFallsBackToBatchSubreddit(t *testing.T) {
	agg := New(staticChecker{"AAPL": true})

	content := `{"mentions":[{"ticker":"AAPL","sentiment":"neutral"}]}`
	agg.Merge(testBatch(), respond(content))

	records := agg.Records(SortByMentions)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SubredditMentions["stocks"] != 1 {
		t.Fatalf("expected fallback subreddit count, got %+v", records[0].SubredditMentions)
	}
}

func TestNeutralBandClassification(t *testing.T) {
	cases := []struct {
		score float64
		label string
	}{
		{0.04, "neutral"},
		{-0.05, "neutral"},
		{0.06, "positive"},
		{-0.2, "negative"},
		{1.8, "positive"}, // clamped to 1
	}

	for _, tc := range cases {
		label, score := normalize(Mention{NumericScore: tc.score})
		if label != tc.label {
			t.Fatalf("normalize(score=%f) label = %q, want %q", tc.score, label, tc.label)
		}
		if score > 1 || score < -1 {
			t.Fatalf("normalize(score=%f) returned unclamped %f", tc.score, score)
		}
	}
}

func TestLabelWithoutScoreGetsDerivedScore(t *testing.T) {
	_, score := normalize(Mention{Sentiment: "positive"})
	if score != 0.5 {
		t.Fatalf("derived score for bare positive label = %f, want 0.5", score)
	}
	_, score = normalize(Mention{Sentiment: "negative"})
	if score != -0.5 {
		t.Fatalf("derived score for bare negative label = %f, want -0.5", score)
	}
}

func TestRecordsSortedByMentionsWithTickerTiebreak(t *testing.T) {
	agg := New(staticChecker{"AAPL": true, "MSFT": true, "NVDA": true})

	content := `{"mentions":[
		{"ticker":"NVDA","sentiment":"positive"},
		{"ticker":"NVDA","sentiment":"positive"},
		{"ticker":"MSFT","sentiment":"neutral"},
		{"ticker":"AAPL","sentiment":"neutral"}
	]}`
	agg.Merge(testBatch(), respond(content))

	records := agg.Records(SortByMentions)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Ticker != "NVDA" {
		t.Fatalf("expected NVDA first, got %s", records[0].Ticker)
	}
	// AAPL and MSFT tie on mentions; ties break alphabetically.
	if records[1].Ticker != "AAPL" || records[2].Ticker != "MSFT" {
		t.Fatalf("tiebreak wrong: %s, %s", records[1].Ticker, records[2].Ticker)
	}
}

func TestSnippetsCapped(t *testing.T) {
	agg := New(staticChecker{"TSLA": true})

	content := `{"mentions":[
		{"ticker":"TSLA","sentiment":"positive","snippet":"one"},
		{"ticker":"TSLA","sentiment":"positive","snippet":"two"},
		{"ticker":"TSLA","sentiment":"positive","snippet":"three"},
		{"ticker":"TSLA","sentiment":"positive","snippet":"four"},
		{"ticker":"TSLA","sentiment":"positive","snippet":"five"},
		{"ticker":"TSLA","sentiment":"positive","snippet":"six"}
	]}`
	agg.Merge(testBatch(), respond(content))

	records := agg.Records(SortByMentions)
	if len(records[0].Snippets) != maxSnippets {
		t.Fatalf("snippets = %d, want capped at %d", len(records[0].Snippets), maxSnippets)
	}
	if records[0].TotalMentions != 6 {
		t.Fatalf("TotalMentions = %d, want 6", records[0].TotalMentions)
	}
}
