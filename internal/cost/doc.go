// Package cost prices LLM token usage.
//
// A Catalog holds per-model prices in USD per million tokens. The defaults
// cover the models brieflow ships configured for and can be extended or
// overridden from the [cost.models] config table. A Calculator turns a
// pipeline.Usage into a dollar amount and a pipeline.UsageRecord; unknown
// models price at zero and are reported so the caller can log them.
package cost
