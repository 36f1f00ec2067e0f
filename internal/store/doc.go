// Package store persists runs, stage records, usage and presets in SQLite.
//
// The database lives at Config.DatabasePath. Open applies the embedded schema
// while holding an exclusive file lock so concurrent CLI invocations do not
// race on first use. Writes retry briefly on SQLITE_BUSY.
//
// Store implements workflow.Sink (RecordRun) and preset.Store (GetPreset).
// A run is written in a single transaction; rewriting the same run ID
// replaces its stage and usage rows.
package store
