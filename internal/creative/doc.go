// Package creative implements the built-in brieflow stages.
//
// The stages run in order: strategy → style_guide → creative_expert →
// prompt_assembly → assessment. Each reads the slots written upstream and
// writes its own slot. A stage whose upstream slot is absent fails without
// calling the LLM.
//
// LLM-backed stages parse responses with llmjson and record priced usage on
// the run. The per-item stages (style_guide, creative_expert, assessment) fan
// out one call per upstream item; a failed item is replaced by a fallback
// value (style guide, assessment) or dropped (concept), and its estimated
// usage is charged. prompt_assembly is deterministic and honours recipe
// brand kit and style overrides.
package creative
