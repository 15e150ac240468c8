package aggregate

import (
	"errors"
	"testing"
)

func TestParseMentionsStrictJSON(t *testing.T) {
	content := `{"mentions":[{"ticker":"NVDA","sentiment":"positive","numericScore":0.8,"subreddit":"stocks","snippet":"beat"}]}`

	mentions, parseErrs, err := parseMentions(content)
	if err != nil {
		t.Fatalf("parseMentions: %v", err)
	}
	if parseErrs != 0 {
		t.Fatalf("parseErrs = %d, want 0", parseErrs)
	}
	if len(mentions) != 1 || mentions[0].Ticker != "NVDA" || mentions[0].NumericScore != 0.8 {
		t.Fatalf("unexpected mentions: %+v", mentions)
	}
}

func TestParseMentionsStripsCodeFences(t *testing.T) {
	content := "Here is the analysis you asked for:\n```json\n{\"mentions\":[{\"ticker\":\"AMD\",\"sentiment\":\"negative\"}]}\n```\nLet me know if you need more."

	mentions, _, err := parseMentions(content)
	if err != nil {
		t.Fatalf("parseMentions: %v", err)
	}
	if len(mentions) != 1 || mentions[0].Ticker != "AMD" {
		t.Fatalf("unexpected mentions: %+v", mentions)
	}
}

func TestParseMentionsSalvagesTruncatedPayload(t *testing.T) {
	// Truncated mid-array: the envelope does not decode, but two complete
	// entries are recoverable.
	content := `{"mentions":[
		{"ticker":"TSLA","sentiment":"positive","snippet":"deliveries up"},
		{"ticker":"AAPL","sentiment":"neutral","snippet":"sideways"},
		{"ticker":"MSF`

	mentions, _, err := parseMentions(content)
	if err != nil {
		t.Fatalf("parseMentions: %v", err)
	}
	if len(mentions) != 2 {
		t.Fatalf("salvaged %d mentions, want 2", len(mentions))
	}
	if mentions[0].Ticker != "TSLA" || mentions[1].Ticker != "AAPL" {
		t.Fatalf("unexpected mentions: %+v", mentions)
	}
}

func TestParseMentionsAcceptsAggregatedShape(t *testing.T) {
	content := `{"tickers":{"GME":{"mentions":3,"sentiment":0.4}}}`

	mentions, _, err := parseMentions(content)
	if err != nil {
		t.Fatalf("parseMentions: %v", err)
	}
	if len(mentions) != 3 {
		t.Fatalf("expanded %d mentions, want 3", len(mentions))
	}
	for _, m := range mentions {
		if m.Ticker != "GME" || m.NumericScore != 0.4 {
			t.Fatalf("unexpected mention: %+v", m)
		}
	}
}

func TestParseMentionsTotalFailure(t *testing.T) {
	_, _, err := parseMentions("I could not find any stock discussions in this content.")
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestParseMentionsCountsMalformedEntries(t *testing.T) {
	// One well-formed entry plus one mention-shaped region that is not
	// valid JSON.
	content := `garbage {"ticker":"NVDA","sentiment":"positive"} more garbage {"ticker": oops}`

	mentions, parseErrs, err := parseMentions(content)
	if err != nil {
		t.Fatalf("parseMentions: %v", err)
	}
	if len(mentions) != 1 {
		t.Fatalf("salvaged %d mentions, want 1", len(mentions))
	}
	if parseErrs != 1 {
		t.Fatalf("parseErrs = %d, want 1", parseErrs)
	}
}
