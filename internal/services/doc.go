// Package services defines shared utilities consumed by pipeline stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, fan-out item indices,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline taxonomy (transient, permanent, truncated, extraction,
//     validation, item-level, stage-level).
//   - IsTransient, the default retry predicate used by internal/retry.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
