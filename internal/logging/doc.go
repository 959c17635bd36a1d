// Package logging builds the slog loggers used across subfuse.
//
// It provides a console handler that renders one line per record with the
// component attribute as a prefix, a JSON handler for machine consumption,
// helpers for standardized field names, and log retention cleanup.
package logging
