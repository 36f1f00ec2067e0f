// Package textutil provides small text helpers shared by the parser, the
// creative stages, and the CLI.
//
// The primary use cases are:
//   - Bounded single-line previews of model output for diagnostics
//   - Human-readable labels for stage and slot names
//   - Token fingerprints and cosine similarity for near-duplicate detection
//   - Lowercase identifier tokens for preset names
package textutil
