package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1
	code3   []string // ISO 639-2 terminology and bibliographic forms
	display string
	words   []string
}

var languages = []entry{
	{"en", []string{"eng"}, "English", []string{"english"}},
	{"es", []string{"spa"}, "Spanish", []string{"spanish", "espanol", "español"}},
	{"fr", []string{"fra", "fre"}, "French", []string{"french", "francais", "français"}},
	{"de", []string{"deu", "ger"}, "German", []string{"german", "deutsch"}},
	{"it", []string{"ita"}, "Italian", []string{"italian", "italiano"}},
	{"pt", []string{"por"}, "Portuguese", []string{"portuguese", "portugues", "português"}},
	{"ja", []string{"jpn"}, "Japanese", []string{"japanese"}},
	{"ko", []string{"kor"}, "Korean", []string{"korean"}},
	{"zh", []string{"zho", "chi"}, "Chinese", []string{"chinese", "mandarin"}},
	{"ru", []string{"rus"}, "Russian", []string{"russian"}},
	{"ar", []string{"ara"}, "Arabic", []string{"arabic"}},
	{"hi", []string{"hin"}, "Hindi", []string{"hindi"}},
	{"nl", []string{"nld", "dut"}, "Dutch", []string{"dutch", "nederlands"}},
	{"pl", []string{"pol"}, "Polish", []string{"polish", "polski"}},
	{"sv", []string{"swe"}, "Swedish", []string{"swedish", "svenska"}},
	{"da", []string{"dan"}, "Danish", []string{"danish", "dansk"}},
	{"no", []string{"nor"}, "Norwegian", []string{"norwegian", "norsk"}},
	{"fi", []string{"fin"}, "Finnish", []string{"finnish", "suomi"}},
	{"tr", []string{"tur"}, "Turkish", []string{"turkish"}},
	{"id", []string{"ind"}, "Indonesian", []string{"indonesian", "bahasa"}},
}

var index map[string]*entry

func init() {
	index = make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		index[e.code2] = e
		for _, code := range e.code3 {
			index[code] = e
		}
		for _, w := range e.words {
			index[w] = e
		}
	}
}

func clean(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "_", "-")
}

// Normalize returns the canonical tag for code: the ISO 639-1 code for known
// languages and names, or the canonical BCP 47 form for anything else that
// parses ("pt_br" becomes "pt-BR"). Unrecognized input yields "".
func Normalize(code string) string {
	code = clean(code)
	if code == "" {
		return ""
	}
	if e, ok := index[code]; ok {
		return e.code2
	}
	tag, err := xlanguage.Parse(code)
	if err != nil || tag == xlanguage.Und {
		return ""
	}
	return tag.String()
}

// DisplayName returns the English name of code. Regional tags use the CLDR
// name ("pt-BR" is "Brazilian Portuguese"). Empty input yields "Unknown" and
// unrecognized input is returned upper-cased.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized := Normalize(trimmed)
	if normalized == "" {
		return strings.ToUpper(trimmed)
	}
	if e, ok := index[normalized]; ok {
		return e.display
	}
	tag, err := xlanguage.Parse(normalized)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// Label renders "Name (tag)" for prompts and CLI output.
func Label(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return strings.TrimSpace(code)
	}
	return DisplayName(normalized) + " (" + normalized + ")"
}
