// Package snapshot exports the ownership tree of a runtime as JSON.
//
// A Document is captured on the goroutine that owns the runtime and handed
// to an Exporter. FileExporter writes one file per document. S3Exporter
// uploads to a bucket.
package snapshot
