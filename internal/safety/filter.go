package safety

import (
	"regexp"
	"strings"
	"unicode"
)

// Result is the outcome of scoring one message. Higher scores are safer.
type Result struct {
	Score   float64 `json:"score"`
	Flagged bool    `json:"flagged"`
}

// Filter scores message content for safety before persistence. Scoring is
// deterministic with respect to the content; there is no hidden state.
// Flagged messages are still persisted, the flag only routes them to the
// moderation queue.
type Filter struct {
	threshold float64
}

// NewFilter builds a filter with the configured flagging threshold.
func NewFilter(threshold float64) *Filter {
	return &Filter{threshold: threshold}
}

// Lexical penalties per category. The lists are intentionally small; the
// heavy lifting happens in the downstream moderation review, this filter
// only triages.
var (
	severePhrases = []string{
		"kill yourself",
		"hurt you",
		"hate you",
		"you deserve to die",
	}
	hostileTerms = []string{
		"stupid",
		"idiot",
		"loser",
		"shut up",
		"dumb",
		"ugly",
		"worthless",
	}
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
)

const (
	severePenalty  = 0.6
	hostilePenalty = 0.2
	contactPenalty = 0.3
	urlPenalty     = 0.15
	shoutPenalty   = 0.1
)

// Score rates the content in [0, 1].
func (f *Filter) Score(content string) Result {
	lower := strings.ToLower(content)
	score := 1.0

	for _, phrase := range severePhrases {
		if strings.Contains(lower, phrase) {
			score -= severePenalty
		}
	}
	for _, term := range hostileTerms {
		if containsWord(lower, term) {
			score -= hostilePenalty
		}
	}
	if phonePattern.MatchString(content) || emailPattern.MatchString(content) {
		score -= contactPenalty
	}
	if urlPattern.MatchString(content) {
		score -= urlPenalty
	}
	if isShouting(content) {
		score -= shoutPenalty
	}

	if score < 0 {
		score = 0
	}
	return Result{Score: score, Flagged: score < f.threshold}
}

// containsWord matches term on word boundaries so "class" never trips on
// embedded substrings.
func containsWord(haystack, term string) bool {
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], term)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(term)
		beforeOK := start == 0 || !isWordRune(rune(haystack[start-1]))
		afterOK := end == len(haystack) || !isWordRune(rune(haystack[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isShouting reports whether a mostly-alphabetic message is written in all
// caps. Short messages are exempt.
func isShouting(content string) bool {
	letters, uppers := 0, 0
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	return letters >= 12 && uppers*10 >= letters*9
}
