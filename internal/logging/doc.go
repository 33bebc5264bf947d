// Package logging assembles structured slog loggers and formatting helpers used
// across animelista.
//
// It owns the console and JSON handlers, rotates the daemon log file through
// lumberjack, and exposes context-aware helpers so request handlers and sync
// jobs tag log lines with anime IDs and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
