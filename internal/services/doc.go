// Package services defines shared utilities consumed by the batch
// coordinator, the engine session, and the presentation surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp job, batch, and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that translate
//     failures into the caller-visible classification strings a job
//     records when it fails.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
