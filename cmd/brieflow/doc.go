// Command brieflow is the command-line front end for the creative pipeline.
//
// It loads configuration, wires the LLM client, retry policy, stage registry
// and SQLite store together, and exposes subcommands for running briefs,
// managing presets, inspecting recorded runs, and debugging model output with
// the response parser.
package main
