// Package logging builds the slog loggers brieflow writes with.
//
// Console output is one readable line per record with the component as a
// prefix. JSON output uses short keys (ts, level, msg, source) so the logs
// command can tail and re-render it. WithContext copies the run ID, stage,
// fan-out item index, and correlation ID carried by a context onto a logger.
package logging
