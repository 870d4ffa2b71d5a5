// Package relevance scores products against a free-text query.
package relevance

import "strings"

const (
	scoreExact     = 1.0
	scoreContains  = 0.8
	scoreWordsBase = 0.3
	scoreWordsSpan = 0.4
	scoreWordsCap  = 0.7
)

// Similarity compares two strings case-insensitively and returns a score in
// [0, 1]. Equal strings score 1, containment scores 0.8, and shared words
// score between 0.3 and 0.7 depending on the share of common words.
//
// Words are split on single spaces, so repeated spaces yield empty words and
// an empty word is contained in every word. No accent folding is applied.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return scoreExact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return scoreContains
	}

	wordsA := strings.Split(a, " ")
	wordsB := strings.Split(b, " ")

	common := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if strings.Contains(wb, wa) || strings.Contains(wa, wb) {
				common++
				break
			}
		}
	}
	if common == 0 {
		return 0
	}

	ratio := float64(common) / float64(max(len(wordsA), len(wordsB)))
	return min(scoreWordsCap, scoreWordsBase+ratio*scoreWordsSpan)
}
