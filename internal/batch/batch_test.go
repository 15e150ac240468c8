package batch

import (
	"strings"
	"testing"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

func item(id string, size int) models.ContentItem {
	return models.ContentItem{ID: id, Body: strings.Repeat("x", size)}
}

func TestPackRespectsCeiling(t *testing.T) {
	// 100 token ceiling = 400 chars. Three 160-char items: two fit, the
	// third spills into a second batch.
	items := []models.ContentItem{item("a", 160), item("b", 160), item("c", 160)}

	batches := Pack(items, 100)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Len() != 2 || batches[1].Len() != 1 {
		t.Fatalf("expected split 2/1, got %d/%d", batches[0].Len(), batches[1].Len())
	}

	for _, b := range batches {
		if b.TokenEstimate > 100 {
			t.Fatalf("batch %d estimate %d exceeds ceiling", b.Index, b.TokenEstimate)
		}
	}
}

func TestPackPreservesOrderAndIndexes(t *testing.T) {
	items := []models.ContentItem{item("a", 200), item("b", 200), item("c", 200), item("d", 200)}

	batches := Pack(items, 100)
	var ids []string
	for i, b := range batches {
		if b.Index != i {
			t.Fatalf("batch %d has index %d", i, b.Index)
		}
		for _, bi := range b.Items {
			ids = append(ids, bi.Item.ID)
		}
	}

	if got := strings.Join(ids, ""); got != "abcd" {
		t.Fatalf("input order not preserved: %s", got)
	}
}

func TestPackTruncatesOversizedItemInsteadOfDropping(t *testing.T) {
	big := models.ContentItem{
		ID:    "big",
		Title: "title",
		Body:  strings.Repeat("y", 4000),
	}

	batches := Pack([]models.ContentItem{big}, 100)
	if len(batches) != 1 || batches[0].Len() != 1 {
		t.Fatalf("expected single batch with the truncated item")
	}

	bi := batches[0].Items[0]
	if !bi.Truncated {
		t.Fatalf("expected item flagged as truncated")
	}
	if bi.Tokens > 100 {
		t.Fatalf("truncated item still estimates %d tokens", bi.Tokens)
	}
	if bi.Item.Title != "title" {
		t.Fatalf("title should survive truncation, got %q", bi.Item.Title)
	}
	if len(bi.Item.Body) >= 4000 {
		t.Fatalf("body was not truncated")
	}
}

func TestPackEmptyInput(t *testing.T) {
	if batches := Pack(nil, 100); len(batches) != 0 {
		t.Fatalf("expected no batches for empty input, got %d", len(batches))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Fatalf("EstimateTokens(400 chars) = %d, want 100", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("EstimateTokens(empty) = %d, want 0", got)
	}
}
