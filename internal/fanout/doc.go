// Package fanout runs independent per-item operations concurrently.
//
// One item failing never cancels or affects its siblings: the failed index
// receives a fallback value and an estimated usage charge, and the result
// always has exactly one outcome per input, in input order.
package fanout
