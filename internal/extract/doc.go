// Package extract turns raw recognized receipt text into structured fields
// with per-field confidence scores. Extraction is a pure function over text:
// it performs no I/O and never fails — fields that cannot be matched are
// simply absent from the result.
package extract
