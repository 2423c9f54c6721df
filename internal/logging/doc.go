// Package logging assembles the structured slog loggers and formatting
// helpers shared across reel components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so conversion code can tag log
// lines with job IDs, batch IDs, and stages without threading attributes by
// hand. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing as the rest of the system.
package logging
