// Package daemon assembles the long-running ingest service: catalog, blob
// store, recognition backend, pipeline, and inbox watcher, under a single
// lifecycle with a file lock enforcing one instance per data directory.
package daemon
