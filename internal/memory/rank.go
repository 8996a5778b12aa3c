package memory

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultLimit is the number of memories injected per turn when the
	// caller has no preference.
	DefaultLimit = 5

	// fallbackSize is the number of recent memories returned when nothing
	// scores above the threshold. It deliberately ignores the limit.
	fallbackSize = 3

	scoreThreshold = 5.0
	recencyWeight  = 5.0
	densityStep    = 0.2
	minTokenLen    = 3
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "have": {}, "what": {}, "where": {}, "when": {}, "how": {},
	"who": {}, "your": {}, "mine": {}, "about": {}, "some": {}, "they": {},
	"them": {},
}

type scored struct {
	content string
	score   float64
}

// Rank returns the memories most relevant to query, best first.
//
// Memories are ordered oldest first; later entries get a small recency
// bonus. When the query carries no usable tokens the last limit memories
// are returned in their original order, and when nothing scores above the
// threshold the last three are returned regardless of limit.
func Rank(query string, memories []string, limit int) []string {
	if len(memories) == 0 {
		return []string{}
	}
	if limit < 0 {
		limit = 0
	}

	queryTokens := queryTokens(query)
	if len(queryTokens) == 0 {
		return tail(memories, limit)
	}

	n := float64(len(memories))
	results := make([]scored, len(memories))
	for i, m := range memories {
		lower := strings.ToLower(m)
		tokens := strings.Fields(stripNonWord(lower))

		var score float64
		matches := 0
		for _, w := range queryTokens {
			switch {
			case containsToken(tokens, w):
				score += float64(len(w) * 2)
				matches++
			case strings.Contains(lower, w):
				score += float64(len(w))
				matches++
			}
		}
		if matches > 1 {
			score *= 1 + float64(matches)*densityStep
		}
		score += float64(i) / n * recencyWeight

		results[i] = scored{content: m, score: score}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	relevant := make([]string, 0, len(results))
	for _, r := range results {
		if r.score > scoreThreshold {
			relevant = append(relevant, r.content)
		}
	}

	if len(relevant) == 0 {
		return tail(memories, fallbackSize)
	}
	if len(relevant) > limit {
		relevant = relevant[:limit]
	}
	return relevant
}

// Tokenize lowercases text, drops punctuation and splits on whitespace,
// keeping only tokens long enough and not in the stop-word set.
func Tokenize(text string) []string {
	return queryTokens(text)
}

func queryTokens(text string) []string {
	fields := strings.Fields(stripNonWord(strings.ToLower(text)))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// stripNonWord keeps ASCII word characters and whitespace only.
func stripNonWord(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func containsToken(tokens []string, w string) bool {
	for _, t := range tokens {
		if t == w {
			return true
		}
	}
	return false
}

func tail(memories []string, n int) []string {
	if n > len(memories) {
		n = len(memories)
	}
	out := make([]string, n)
	copy(out, memories[len(memories)-n:])
	return out
}
