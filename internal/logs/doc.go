// Package logs reads the brieflow log file for the `brieflow logs` command.
//
// Tail returns the last N lines (negative offset) or everything written after
// a byte offset, optionally waiting for new lines in follow mode. Lines can be
// filtered by substring so a single run's entries are easy to isolate, and
// Format renders JSON handler output in the same shape as the console handler.
package logs
