package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Fingerprint is a term-frequency vector used to compare generated texts.
type Fingerprint struct {
	terms map[string]float64
	norm  float64
}

// NewFingerprint builds a fingerprint from text. Returns nil when the text
// contains no terms of three or more characters.
func NewFingerprint(text string) *Fingerprint {
	terms := Terms(text)
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	return &Fingerprint{terms: counts, norm: math.Sqrt(sum)}
}

// Terms lowercases text and splits it on non-alphanumeric runs, dropping
// terms shorter than three characters.
func Terms(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, term := range raw {
		if len(term) < 3 {
			continue
		}
		out = append(out, term)
	}
	return out
}

// Similarity returns the cosine similarity of two fingerprints in [0, 1].
// Nil fingerprints compare as 0.
func Similarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(small.terms) > len(large.terms) {
		small, large = large, small
	}
	var dot float64
	for term, count := range small.terms {
		dot += count * large.terms[term]
	}
	return dot / (a.norm * b.norm)
}
