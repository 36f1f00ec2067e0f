// Package workflow runs the stages of a run in order over a shared run
// context.
//
// The Orchestrator executes each configured stage once, skipping the ones the
// run's preset excludes. A stage that fails or panics is logged and recorded
// but never stops the run: downstream stages see the absent slot and decide
// for themselves whether to skip. After the last stage the run is marked
// failed only when its must-produce output is missing.
//
// Observers receive before/after stage callbacks, long-running stages emit
// heartbeat log lines, and a Sink persists the finished run. Status reports the
// last run together with stage health checks.
package workflow
