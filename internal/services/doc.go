// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that translate stage
//     failures into the consistent taxonomy reported to callers: I/O, decode,
//     recognition, and persistence failures stay distinguishable no matter
//     which stage produced them.
//   - Thin abstractions that make command execution against external tools
//     (the OCR engine) testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
