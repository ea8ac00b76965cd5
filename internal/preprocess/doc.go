// Package preprocess normalizes raster receipt images before recognition.
//
// Raster inputs (JPEG, PNG, GIF, HEIC) are converted to grayscale, contrast
// stretched, and bounded to 2800px on the longest side so low-quality phone
// photographs OCR acceptably and huge captures do not blow up recognition
// latency. Non-raster inputs (PDFs) pass through untouched; the recognition
// backend owns document handling. All processing is pure per call — the
// package keeps no state.
package preprocess
