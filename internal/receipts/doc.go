// Package receipts persists extracted receipt records in SQLite, keyed by
// content hash. The catalog is the durable record behind the review queue:
// every completed pipeline item lands here exactly once, and duplicates
// increment a counter on the existing row instead of inserting again.
package receipts
