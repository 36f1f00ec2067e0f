// Package llmjson extracts structured JSON values from free-form model output.
//
// Model responses arrive wrapped in commentary, fenced code blocks, trailing
// prose, or cut off mid-generation. Extract runs an ordered list of strategies
// (fenced block, direct parse, bracket matching, repair pass) and returns the
// first value that parses, together with the strategy that produced it.
// Responses that look cut off are reported as services.ErrTruncated so callers
// can retry with a larger output budget instead of attempting repair.
//
// ExtractAndValidate decodes the value into a caller type and optionally runs
// a fallback transform when the first decode does not match the expected
// shape. Everything in this package is pure: no I/O, no logging.
package llmjson
