package cli

import (
	"reflect"
	"testing"

	"github.com/tickerpulse/tickerpulse/config"
)

func testCLIConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Subreddits = []string{"wallstreetbets", "stocks", "investing", "options"}
	return cfg
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		expr string
		n    int
		want []int
	}{
		{"1", 10, []int{0}},
		{"1,3", 10, []int{0, 2}},
		{"1,3-5,8", 10, []int{0, 2, 3, 4, 7}},
		{"3-3", 10, []int{2}},
		{" 2 , 4 - 5 ", 10, []int{1, 3, 4}},
		{"5,1,5", 10, []int{0, 4}},
		{"all", 3, []int{0, 1, 2}},
	}

	for _, tc := range cases {
		got, err := ParseSelection(tc.expr, tc.n)
		if err != nil {
			t.Fatalf("ParseSelection(%q): %v", tc.expr, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseSelection(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestParseSelectionErrors(t *testing.T) {
	cases := []struct {
		expr string
		n    int
	}{
		{"", 10},
		{"0", 10},
		{"11", 10},
		{"5-2", 10},
		{"a", 10},
		{"1-", 10},
		{",,,", 10},
	}

	for _, tc := range cases {
		if _, err := ParseSelection(tc.expr, tc.n); err == nil {
			t.Fatalf("ParseSelection(%q, %d) should fail", tc.expr, tc.n)
		}
	}
}

func TestResolveSubreddits(t *testing.T) {
	cfg := testCLIConfig()

	subs, err := resolveSubreddits(cfg, "1,3", "")
	if err != nil {
		t.Fatalf("resolveSubreddits: %v", err)
	}
	if !reflect.DeepEqual(subs, []string{cfg.Subreddits[0], cfg.Subreddits[2]}) {
		t.Fatalf("unexpected selection: %v", subs)
	}

	subs, err = resolveSubreddits(cfg, "", "r/stocks, investing")
	if err != nil {
		t.Fatalf("resolveSubreddits names: %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"stocks", "investing"}) {
		t.Fatalf("unexpected names: %v", subs)
	}

	subs, err = resolveSubreddits(cfg, "", "")
	if err != nil {
		t.Fatalf("resolveSubreddits default: %v", err)
	}
	if !reflect.DeepEqual(subs, cfg.Subreddits) {
		t.Fatalf("default should be the full list")
	}
}
