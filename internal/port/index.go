package port

import "docrag/internal/domain"

// VectorIndex stores passage embeddings and answers nearest-neighbor
// queries. Exactly one index is active per deployment; Rebuild replaces
// the persisted index wholesale.
type VectorIndex interface {
	// Rebuild drops any persisted state and indexes the given passages
	// from scratch. Embedding failures for individual batches are
	// skipped; domain.ErrEmptyIndex is returned when nothing embeds.
	Rebuild(passages []domain.Passage) error

	// Add embeds and inserts passages into the existing index.
	Add(passages []domain.Passage) error

	// Search returns the k nearest passages to the query text,
	// highest similarity first.
	Search(query string, k int) ([]domain.ScoredPassage, error)

	// Count returns the number of indexed passages.
	Count() (int, error)

	// Close releases the underlying storage.
	Close() error
}
