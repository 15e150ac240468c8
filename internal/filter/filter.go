// Package filter decides which fetched content is worth an LLM request.
// Filtering is pure classification: the same item always yields the same
// decision, and nothing is mutated.
package filter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tickerpulse/tickerpulse/internal/models"
)

// Decision is the outcome of filtering one item.
type Decision struct {
	Item   models.ContentItem
	Keep   bool
	Reason string
}

// Rejection reasons, used in run stats and logs.
const (
	ReasonLowScore    = "below score threshold"
	ReasonSkipFlair   = "gain/loss/meme flair"
	ReasonLowEffort   = "low-effort comment"
	ReasonNoCandidate = "no ticker candidates"
	ReasonKept        = "kept"
)

// stopwords are uppercase tokens that match the ticker shape but are common
// words or forum slang, not symbols.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"I", "A", "IT", "IS", "OR", "SO", "DO", "GO", "TO", "BE", "WE", "HE", "ME",
		"US", "UP", "AT", "BY", "IN", "ON", "NO", "MY", "AM", "AN", "AS", "IF",
		"THE", "AND", "FOR", "NOT", "BUT", "CAN", "ALL", "ARE", "WAS", "HAS",
		"HIS", "HER", "ITS", "OUR", "OUT", "NEW", "NOW", "OLD", "ONE", "TWO",
		"WHY", "HOW", "WHO", "MAY", "WAY", "DAY", "GET", "GOT", "HAD", "YES",
		"YET", "SEE", "SAY", "SHE", "TOO", "USE", "WON", "LET", "PUT", "DID",
		"CEO", "CFO", "IPO", "ETF", "USD", "USA", "SEC", "FDA", "ATH", "ATL",
		"EOD", "DD", "TA", "FA", "FD", "WSB", "OP", "AH", "PM",
		"LOL", "WTF", "FYI", "ASAP", "BTW", "IMO", "TBH", "IDK", "AMA", "ELI",
		"TIL", "PSA", "EDIT", "TLDR", "NSFW", "FOMO", "YOLO", "LMAO", "HODL",
		"WILL", "YEAR", "WEEK", "TIME", "JUST", "LIKE", "MAKE", "TAKE", "LOOK",
		"KNOW", "WANT", "NEED", "GOOD", "MUCH", "MORE", "VERY", "WELL",
		"ALSO", "BACK", "DOWN", "EVEN", "BEEN", "FROM", "HERE", "ONLY", "OVER",
		"THAN", "THEN", "THEM", "THEY", "THIS", "THAT", "WHAT", "WHEN", "WITH",
		"YOUR", "HAVE", "INTO", "SOME", "SAID", "EACH", "COME", "MADE", "MOST",
		"LONG", "DOES", "SUCH", "BOTH", "MANY", "MUST", "CALL", "NEXT", "EVER",
		"ONCE",
	} {
		stopwords[w] = struct{}{}
	}
}

// lowEffortPhrases reject a comment outright when its whole body, lowercased
// and trimmed, is one of these.
var lowEffortPhrases = map[string]struct{}{}

func init() {
	for _, p := range []string{
		"f", "ff", "fff", "ffff", "nice", "this", "same", "lol", "lmao", "omg",
		"wow", "agreed", "agree", "+1", "yolo", "to the moon", "stonks",
		"this is the way", "diamond hands", "paper hands", "wen lambo",
		"buy the dip", "printer go brrr",
	} {
		lowEffortPhrases[p] = struct{}{}
	}
}

var (
	dollarTicker    = regexp.MustCompile(`\$[A-Za-z]{1,5}\b`)
	capsToken       = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	memePhrase      = regexp.MustCompile(`\b(to the moon|moon|rocket|wen lambo|lambo|yolo|fomo|hodl|diamond hands?|paper hands?|tendies|stonks?|apes? together strong|this is the way|buy the dip|btfd|pump it|dump it|shill|bag holder|brrr)\b`)
	valueIndicators = regexp.MustCompile(`\b(earnings?|revenue|profit|loss|eps|valuation|analyst|price target|upgrade|downgrade|fundamental|technical|chart|support|resistance|news|announced|report|filing|sec|10-k|10-q|management|ceo|cfo|guidance|outlook|competitor|market share|growth|quarter|q[1-4]|debt|cash flow|balance sheet|dividend|yield|bought|sold|position|shares?|entry|exit)\b`)
	skipFlairs      = []string{"gain", "loss", "gains", "losses", "meme"}
)

// Filter classifies content items ahead of LLM analysis.
type Filter struct {
	MinScore         int
	MinCommentLength int
}

// New creates a filter with the given thresholds.
func New(minScore, minCommentLength int) *Filter {
	return &Filter{MinScore: minScore, MinCommentLength: minCommentLength}
}

// ShouldProcess classifies one item. It has no side effects.
func (f *Filter) ShouldProcess(item models.ContentItem) Decision {
	if item.Score < f.MinScore {
		return Decision{Item: item, Keep: false, Reason: ReasonLowScore}
	}

	if shouldSkipFlair(item.Flair) {
		return Decision{Item: item, Keep: false, Reason: ReasonSkipFlair}
	}

	if item.IsComment && !f.isQualityComment(item.Body) {
		return Decision{Item: item, Keep: false, Reason: ReasonLowEffort}
	}

	if !LikelyHasTicker(item.Text()) {
		return Decision{Item: item, Keep: false, Reason: ReasonNoCandidate}
	}

	return Decision{Item: item, Keep: true, Reason: ReasonKept}
}

// LikelyHasTicker reports whether text contains at least one plausible ticker
// candidate: a $-prefixed symbol, or an uppercase 1-5 letter token that is
// not a stopword. Much cheaper than an LLM call.
func LikelyHasTicker(text string) bool {
	if len(text) < 10 {
		return false
	}

	if strings.Contains(text, "$") && dollarTicker.MatchString(text) {
		return true
	}

	for _, tok := range capsToken.FindAllString(text, -1) {
		if _, common := stopwords[tok]; !common {
			return true
		}
	}
	return false
}

// shouldSkipFlair reports whether a post flair marks gain/loss/meme content.
func shouldSkipFlair(flair string) bool {
	if flair == "" {
		return false
	}
	lower := strings.ToLower(flair)
	for _, skip := range skipFlairs {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}

// isQualityComment rejects meme and low-effort comment bodies. Comments with
// fundamentals vocabulary are kept even when meme-heavy.
func (f *Filter) isQualityComment(body string) bool {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < f.MinCommentLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	if _, ok := lowEffortPhrases[lower]; ok {
		return false
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) <= 2 {
		return false
	}

	if isPureEmojiOrPunct(trimmed) {
		return false
	}

	if valueIndicators.MatchString(lower) {
		return true
	}

	memeCount := len(memePhrase.FindAllString(lower, -1))
	if len(tokens) > 0 && float64(memeCount)/float64(len(tokens)) > 0.3 {
		return false
	}

	if emojiRatio(trimmed) > 0.2 {
		return false
	}

	return true
}

// isPureEmojiOrPunct reports whether text has no letters or digits at all.
func isPureEmojiOrPunct(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && r < 0x1F000 {
			return false
		}
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// emojiRatio is the share of runes in the emoji planes.
func emojiRatio(text string) float64 {
	total, emoji := 0, 0
	for _, r := range text {
		total++
		if r >= 0x1F000 {
			emoji++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(emoji) / float64(total)
}
