// Package pipeline holds the state shared by the stages of one run.
//
// A Context is created per run and threaded through every stage. Stage
// outputs live in typed slots that only their owning stage writes; a slot
// left absent tells downstream stages that upstream work failed and the
// dependent work should be skipped rather than attempted with bad input.
package pipeline
