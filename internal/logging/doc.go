// Package logging assembles structured slog loggers and formatting helpers used
// across galman.
//
// It owns the configurable console/JSON handlers, routes output to the
// terminal and a per-run log file, stamps every record with the run's session
// ID, and prunes old log files. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
