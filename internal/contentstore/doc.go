// Package contentstore implements the content-addressed attachment store.
//
// Blobs are keyed by the SHA-256 of their raw bytes and laid out under a
// two-level hex-prefix directory tree, so the same content always resolves to
// the same path without an index and no single directory grows unbounded.
// Stored blobs are immutable: nothing in this package modifies or deletes an
// existing attachment, and concurrent writers of identical content converge
// on a single blob.
package contentstore
