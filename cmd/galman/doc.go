// Package main hosts the galman CLI entrypoint and command graph.
//
// Subcommands cover import then review, import only, review only, the gallery
// slideshow, a status report, the run log viewer, and config scaffolding.
// Configuration, session logging and signal handling are resolved here; the
// workflows themselves live in internal/triage.
package main
