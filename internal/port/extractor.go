package port

import "docrag/internal/domain"

// Extractor converts a document file into extracted text records.
// One file may yield several records (one per PDF page). Records with
// fewer than 20 whitespace-separated tokens are discarded by the
// implementation, not surfaced as errors.
type Extractor interface {
	// Extract returns the usable text records for a single file.
	Extract(path string) ([]domain.Record, error)
}
