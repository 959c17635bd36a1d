// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and source
//     paths for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     as retryable or terminal.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
