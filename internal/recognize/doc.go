// Package recognize defines the OCR capability boundary.
//
// The pipeline is polymorphic over a single-method Backend so a deterministic
// in-memory engine can stand in for real OCR during tests while production
// uses the tesseract CLI. The orchestrator never branches on which backend is
// active; backends differ only in how Recognize produces text. Recognition
// failures are not retried — OCR failures are usually deterministic for a
// given input.
package recognize
