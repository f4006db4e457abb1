package port

// Reranker scores query-document pairs for relevance.
type Reranker interface {
	// Rerank scores each (query, text) pair. The result preserves input
	// indexes; scores are relevance, higher is better.
	Rerank(query string, texts []string) ([]RerankedResult, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}

// RerankedResult represents one scored document.
type RerankedResult struct {
	Index int     // Original index in the input slice
	Score float64 // Relevance score (higher is better)
}
