// Package pipeline sequences receipt ingestion: intake items from the
// watcher or direct calls flow through a bounded queue into workers that
// hash, dedup, store, preprocess, recognize, extract, and persist each
// receipt, emitting one outcome event per item. The queue's fixed capacity
// provides backpressure — producers block when workers fall behind.
package pipeline
