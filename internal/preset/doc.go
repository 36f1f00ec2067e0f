// Package preset decides which stages a run skips and seeds the run context
// from a saved preset.
//
// A template preset only pre-fills inputs; every stage still runs. A recipe
// preset carries the artifacts of a previous run (strategies, style guides,
// concepts) so the stages that produced them are skipped.
package preset
