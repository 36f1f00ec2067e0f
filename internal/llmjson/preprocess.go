package llmjson

import (
	"regexp"
	"strings"
)

type rewrite struct {
	name    string
	pattern *regexp.Regexp
}

// fillerRewrites strip conversational wrapping. They run in order, once each,
// and never cross an opening bracket.
var fillerRewrites = []rewrite{
	{"lead_in", regexp.MustCompile(`(?i)^(?:sure|certainly|of course|absolutely|okay|ok)\b[^\n{\[]*?(?:[:!.]\s*|\n)`)},
	{"heres_the", regexp.MustCompile(`(?i)^here(?:'s| is| are)\b[^\n{\[]*?:\s*`)},
	{"i_will", regexp.MustCompile(`(?i)^i(?:'ll| will| have|'ve)\b[^\n{\[]*?(?::\s*|\.\s+|\n)`)},
	{"below_is", regexp.MustCompile(`(?i)^(?:below is|the following is|based on)\b[^\n{\[]*?:\s*`)},
	{"let_me_know", regexp.MustCompile("(?is)\\s*(?:let me know|hope this helps|feel free to|if you (?:need|have|want|would like))[^{}\\[\\]`]*$")},
}

// Preprocess removes filler prose and dangling fence markers around a
// response body.
func Preprocess(text string) string {
	out := strings.TrimSpace(text)
	for _, rw := range fillerRewrites {
		out = strings.TrimSpace(rw.pattern.ReplaceAllString(out, ""))
	}
	if strings.Count(out, fence)%2 == 1 {
		switch {
		case strings.HasSuffix(out, fence):
			out = strings.TrimSpace(strings.TrimSuffix(out, fence))
		case strings.HasPrefix(out, fence):
			rest := out[len(fence):]
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				rest = rest[nl+1:]
			} else {
				rest = strings.TrimLeftFunc(rest, func(r rune) bool { return r < 128 && isIdentPart(byte(r)) })
			}
			out = strings.TrimSpace(rest)
		}
	}
	return out
}
