package port

import "docrag/internal/domain"

// ChunkProcessor turns one extracted record into embedding-ready
// passages. Process is a pure function and safe to call concurrently
// from multiple goroutines.
type ChunkProcessor interface {
	Process(record domain.Record) []domain.Passage
}
