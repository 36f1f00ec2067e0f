// Package language normalizes the output language of a run.
//
// Callers may pass ISO 639-1 or 639-2 codes, English language names, or BCP 47
// tags such as "pt-BR". Normalize reduces all of them to a canonical tag and
// DisplayName renders the English name used in prompts and CLI output.
package language
