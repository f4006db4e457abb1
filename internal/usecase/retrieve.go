package usecase

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"docrag/internal/adapter/index"
	"docrag/internal/domain"
	"docrag/internal/port"
)

const (
	// topK is the context budget: how many passages reach the prompt.
	topK = 8

	// rerankCandidates is how many dense results the cross-encoder
	// rescores when reranking triggers.
	rerankCandidates = 15

	// denseKLong / denseKShort size the first-stage fetch. Short
	// queries are less discriminative, so they cast a wider net.
	denseKLong  = 25
	denseKShort = 35
)

// rerankKeywords marks list/aggregation-style questions, where dense
// similarity alone under-ranks complete enumerations.
var rerankKeywords = []string{
	"ticket", "booking", "travel", "passenger",
	"name", "details", "who", "list", "all",
}

// Retriever implements two-stage retrieval: dense search against the
// vector index, then a conditional cross-encoder rerank of the head.
type Retriever struct {
	index    *index.Manager
	reranker port.Reranker
}

// NewRetriever creates a retriever. reranker may be nil, which
// disables the second stage entirely.
func NewRetriever(manager *index.Manager, reranker port.Reranker) *Retriever {
	return &Retriever{index: manager, reranker: reranker}
}

// needsRerank reports whether the query contains a list-intent keyword.
func needsRerank(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range rerankKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// denseK picks the first-stage fetch size from the query length.
func denseK(query string) int {
	if len(strings.Fields(query)) >= 5 {
		return denseKLong
	}
	return denseKShort
}

// Retrieve returns up to topK passages for the query, most relevant
// first. Reranking runs only for keyword-matching queries of at least
// six words; everything else is served dense-only.
func (r *Retriever) Retrieve(query string) ([]domain.ScoredPassage, error) {
	dense, err := r.index.Search(query, denseK(query))
	if err != nil {
		return nil, err
	}

	words := len(strings.Fields(query))
	if !needsRerank(query) || words < 6 || r.reranker == nil {
		return head(dense, topK), nil
	}

	candidates := head(dense, rerankCandidates)
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Passage.Content
	}

	scored, err := r.reranker.Rerank(query, texts)
	if err != nil {
		// Dense order is still a usable answer; degrade instead of failing.
		log.Warn("reranking failed, returning dense results", "error", err)
		return head(dense, topK), nil
	}

	byIndex := make(map[int]float64, len(scored))
	for _, s := range scored {
		byIndex[s.Index] = s.Score
	}

	reranked := make([]domain.ScoredPassage, len(candidates))
	for i, c := range candidates {
		reranked[i] = domain.ScoredPassage{Passage: c.Passage, Score: byIndex[i]}
	}

	// Stable: equal scores keep their dense order.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return head(reranked, topK), nil
}

func head(passages []domain.ScoredPassage, n int) []domain.ScoredPassage {
	if len(passages) > n {
		return passages[:n]
	}
	return passages
}
