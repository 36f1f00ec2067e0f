package llmjson

import "strings"

// Repair rewrites malformed JSON text. It reports whether anything changed.
type Repair struct {
	Name  string
	Apply func(string) (string, bool)
}

// Repairs run in order; each one sees the output of the previous.
var Repairs = []Repair{
	{Name: "single_quotes", Apply: singleToDoubleQuotes},
	{Name: "trailing_commas", Apply: removeTrailingCommas},
	{Name: "unquoted_keys", Apply: quoteUnquotedKeys},
	{Name: "bare_values", Apply: quoteBareValues},
}

// repairCandidate applies Repairs cumulatively and strict-parses after every
// step that changed the text.
func repairCandidate(text string) (Result, bool) {
	current := text
	var applied []string
	for _, r := range Repairs {
		next, changed := r.Apply(current)
		if !changed {
			continue
		}
		current = next
		applied = append(applied, r.Name)
		if v, ok := strictParse(current); ok {
			return Result{Value: v, JSON: strings.TrimSpace(current), Strategy: StrategyRepair, Repaired: true, Repairs: applied}, true
		}
	}
	return Result{}, false
}

func fromRepair(text string) (Result, bool) {
	candidates := append(fencedBodies(text), bracketSpans(text)...)
	candidates = append(candidates, text)
	for _, c := range candidates {
		if res, ok := repairCandidate(c); ok {
			return res, true
		}
	}
	return Result{}, false
}

func singleToDoubleQuotes(s string) (string, bool) {
	if !strings.Contains(s, "'") {
		return s, false
	}
	var b strings.Builder
	b.Grow(len(s))
	changed := false
	inDouble := false
	escaped := false
	var last byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inDouble {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inDouble = false
				last = c
			}
			continue
		}
		switch {
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case c == '\'' && (last == 0 || strings.IndexByte("{[,:", last) >= 0):
			end := closingSingleQuote(s, i+1)
			if end < 0 {
				b.WriteByte(c)
				last = c
				continue
			}
			b.WriteByte('"')
			b.WriteString(escapeForDoubleQuotes(s[i+1 : end]))
			b.WriteByte('"')
			i = end
			last = '"'
			changed = true
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				last = c
			}
		}
	}
	return b.String(), changed
}

func closingSingleQuote(s string, from int) int {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\'':
			k := j + 1
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k == len(s) || strings.IndexByte(",}]:", s[k]) >= 0 {
				return j
			}
		}
	}
	return -1
}

func escapeForDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// walkOutsideStrings copies s, calling visit for every byte outside a
// double-quoted string. visit returns how many bytes it consumed (0 means
// copy the byte as-is).
func walkOutsideStrings(s string, visit func(i int, b *strings.Builder) int) (string, bool) {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inString := false
	escaped := false
	for i := 0; i < len(s); {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}
		if n := visit(i, &b); n > 0 {
			i += n
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
		i++
	}
	out := b.String()
	return out, out != s
}

func removeTrailingCommas(s string) (string, bool) {
	return walkOutsideStrings(s, func(i int, _ *strings.Builder) int {
		if s[i] != ',' {
			return 0
		}
		k := i + 1
		for k < len(s) && isSpace(s[k]) {
			k++
		}
		if k < len(s) && (s[k] == '}' || s[k] == ']') {
			return 1
		}
		return 0
	})
}

func quoteUnquotedKeys(s string) (string, bool) {
	return walkOutsideStrings(s, func(i int, b *strings.Builder) int {
		if s[i] != '{' && s[i] != ',' {
			return 0
		}
		k := i + 1
		for k < len(s) && isSpace(s[k]) {
			k++
		}
		if k >= len(s) || !isIdentStart(s[k]) {
			return 0
		}
		end := k
		for end < len(s) && isIdentPart(s[end]) {
			end++
		}
		colon := end
		for colon < len(s) && isSpace(s[colon]) {
			colon++
		}
		if colon >= len(s) || s[colon] != ':' {
			return 0
		}
		b.WriteString(s[i:k])
		b.WriteByte('"')
		b.WriteString(s[k:end])
		b.WriteByte('"')
		return end - i
	})
}

var bareLiterals = map[string]string{
	"true":  "true",
	"false": "false",
	"null":  "null",
	"True":  "true",
	"False": "false",
	"None":  "null",
}

func quoteBareValues(s string) (string, bool) {
	return walkOutsideStrings(s, func(i int, b *strings.Builder) int {
		if s[i] != ':' {
			return 0
		}
		k := i + 1
		for k < len(s) && (s[k] == ' ' || s[k] == '\t') {
			k++
		}
		if k >= len(s) || !isIdentStart(s[k]) {
			return 0
		}
		end := k
		for end < len(s) && strings.IndexByte(",}]\n\r", s[end]) < 0 {
			end++
		}
		word := strings.TrimRight(s[k:end], " \t")
		b.WriteString(s[i:k])
		if lit, ok := bareLiterals[word]; ok {
			b.WriteString(lit)
		} else {
			b.WriteByte('"')
			b.WriteString(escapeForDoubleQuotes(word))
			b.WriteByte('"')
		}
		return k + len(word) - i
	})
}
