// Package watcher observes inbox directories for newly arrived receipt
// files and feeds them to the pipeline once they are fully written. Files
// already present at startup are swept in, so receipts dropped while the
// daemon was down are never missed.
package watcher
