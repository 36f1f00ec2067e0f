package llmjson

import "testing"

func TestRepairs(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(string) (string, bool)
		in      string
		want    string
		changed bool
	}{
		{"single quotes", singleToDoubleQuotes, `{'a': 'it\'s "x"'}`, `{"a": "it's \"x\""}`, true},
		{"apostrophe in double string", singleToDoubleQuotes, `{"a": "it's"}`, `{"a": "it's"}`, false},
		{"trailing comma object", removeTrailingCommas, `{"a": 1, }`, `{"a": 1 }`, true},
		{"trailing comma array", removeTrailingCommas, `[1, 2,]`, `[1, 2]`, true},
		{"comma inside string", removeTrailingCommas, `{"a": ",}"}`, `{"a": ",}"}`, false},
		{"unquoted keys", quoteUnquotedKeys, `{a: 1, b_c: 2}`, `{"a": 1, "b_c": 2}`, true},
		{"quoted keys untouched", quoteUnquotedKeys, `{"a": 1}`, `{"a": 1}`, false},
		{"bare values", quoteBareValues, `{"a": hello world, "b": null}`, `{"a": "hello world", "b": null}`, true},
		{"python literals", quoteBareValues, `{"a": None}`, `{"a": null}`, true},
		{"numbers untouched", quoteBareValues, `{"a": 12}`, `{"a": 12}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := tc.apply(tc.in)
			if got != tc.want || changed != tc.changed {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, changed, tc.want, tc.changed)
			}
		})
	}
}
