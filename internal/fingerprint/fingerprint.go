// Package fingerprint builds normalized content fingerprints for
// opportunities and scores fingerprint similarity for duplicate-aware
// caching.
package fingerprint

import (
	"strings"

	"github.com/pitchradar/radar-cli/internal/model"
)

// minTokenLen filters out short noise words before set comparison.
const minTokenLen = 3

// punctuation stripped during tokenization.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

// New builds the content fingerprint for an opportunity: lowercased,
// trimmed title followed by the description twice. Doubling the description
// biases similarity matching toward descriptive content rather than
// headline phrasing.
func New(o *model.Opportunity) string {
	if o == nil {
		return ""
	}
	title := strings.ToLower(strings.TrimSpace(o.Title))
	desc := strings.ToLower(strings.TrimSpace(o.Description))
	return title + " " + desc + " " + desc
}

// Similarity computes Jaccard similarity over the word sets of two
// fingerprints. Tokens are stripped of punctuation and tokens of length <= 2
// are discarded; if either set ends up empty the result is 0, so two blobs
// of nothing but short tokens never count as fully similar.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA)
	for w := range setB {
		if !setA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)

	words := strings.Fields(cleaned)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) >= minTokenLen {
			set[w] = true
		}
	}
	return set
}
