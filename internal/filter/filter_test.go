package filter

import (
	"strings"
	"testing"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

func TestShouldProcessScoreThreshold(t *testing.T) {
	f := New(10, 40)

	item := models.ContentItem{
		ID:    "p1",
		Title: "NVDA earnings look strong this quarter",
		Body:  "Revenue growth is accelerating and the guidance was raised again.",
		Score: 9,
	}

	d := f.ShouldProcess(item)
	if d.Keep {
		t.Fatalf("expected item with score 9 rejected, got kept")
	}
	if d.Reason != ReasonLowScore {
		t.Fatalf("expected reason %q, got %q", ReasonLowScore, d.Reason)
	}

	item.Score = 10
	d = f.ShouldProcess(item)
	if !d.Keep {
		t.Fatalf("expected item with score 10 kept, rejected with %q", d.Reason)
	}
}

func TestShouldProcessIsPure(t *testing.T) {
	f := New(10, 40)
	item := models.ContentItem{
		ID:    "p2",
		Title: "What do you think about $TSLA at these levels?",
		Body:  "Their margins keep compressing but the energy business is growing.",
		Score: 50,
	}

	first := f.ShouldProcess(item)
	for i := 0; i < 5; i++ {
		if d := f.ShouldProcess(item); d.Keep != first.Keep || d.Reason != first.Reason {
			t.Fatalf("decision changed between calls: %+v vs %+v", first, d)
		}
	}
	if item.Body == "" {
		t.Fatalf("filter mutated the item")
	}
}

func TestShouldProcessSkipsGainLossFlairs(t *testing.T) {
	f := New(10, 40)

	for _, flair := range []string{"Gain", "Loss", "Meme", "gain porn"} {
		item := models.ContentItem{
			ID:    "p3",
			Title: "AMD position update with full cost basis",
			Body:  "Bought more shares after the earnings report beat expectations.",
			Score: 100,
			Flair: flair,
		}
		if d := f.ShouldProcess(item); d.Keep {
			t.Fatalf("expected flair %q rejected", flair)
		}
	}
}

func TestShouldProcessRejectsLowEffortComments(t *testing.T) {
	f := New(10, 40)

	cases := []string{
		"this is the way",
		"lol",
		"🚀🚀🚀🚀🚀",
	}
	for _, body := range cases {
		item := models.ContentItem{
			ID:        "c1",
			Body:      body,
			Score:     25,
			IsComment: true,
		}
		if d := f.ShouldProcess(item); d.Keep {
			t.Fatalf("expected comment %q rejected", body)
		}
	}
}

func TestQualityCommentValueIndicatorOverridesMemes(t *testing.T) {
	f := New(10, 40)

	body := "to the moon rockets aside, their earnings report showed real revenue growth and the valuation finally makes sense for AAPL"
	item := models.ContentItem{ID: "c2", Body: body, Score: 30, IsComment: true}

	if d := f.ShouldProcess(item); !d.Keep {
		t.Fatalf("expected comment with value indicators kept, rejected with %q", d.Reason)
	}
}

func TestLikelyHasTicker(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I really like $GME at this price point", true},
		{"NVDA is printing money every single quarter", true},
		{"the and for not but can all are was", false},
		{"short", false},
		{"I think THE CEO did well, FYI", false},
	}

	for _, tc := range cases {
		if got := LikelyHasTicker(tc.text); got != tc.want {
			t.Fatalf("LikelyHasTicker(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestStopwordsAreNotCandidates(t *testing.T) {
	// A shouted sentence of common words has no candidates.
	text := strings.ToUpper("this is the way and we will see why now")
	if LikelyHasTicker(text) {
		t.Fatalf("expected no ticker candidates in %q", text)
	}
}
