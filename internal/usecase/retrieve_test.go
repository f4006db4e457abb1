package usecase

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/rerank"
	"docrag/internal/domain"
	"docrag/internal/port"
)

func newTestManager(t *testing.T, n int) *index.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	mgr := index.NewManager(func() (port.VectorIndex, error) {
		return index.OpenBolt(path, embedding.NewMock(16), 500)
	})
	t.Cleanup(func() { mgr.Close() })

	passages := make([]domain.Passage, n)
	for i := range passages {
		passages[i] = domain.Passage{
			ID:      fmt.Sprintf("p-%d", i),
			Content: fmt.Sprintf("passage %d body text with enough words", i),
			Source:  "doc.pdf",
		}
	}
	require.NoError(t, mgr.Rebuild(passages))
	return mgr
}

func TestNeedsRerank(t *testing.T) {
	assert.True(t, needsRerank("list all passengers on the flight"))
	assert.True(t, needsRerank("WHO is travelling tomorrow"))
	assert.False(t, needsRerank("when does the flight depart"))
}

func TestDenseK(t *testing.T) {
	assert.Equal(t, denseKShort, denseK("short query here now"))
	assert.Equal(t, denseKLong, denseK("a query with five words total"))
}

func TestRetrieveDenseOnly(t *testing.T) {
	mgr := newTestManager(t, 20)
	r := NewRetriever(mgr, nil)

	results, err := r.Retrieve("when does the evening train depart from the station")
	require.NoError(t, err)
	assert.Len(t, results, topK)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRetrieveShortQuerySkipsRerank(t *testing.T) {
	mgr := newTestManager(t, 20)
	// Keyword present but under six words: reranker must not be called.
	mock := &rerank.Mock{Err: fmt.Errorf("should not be called")}
	r := NewRetriever(mgr, mock)

	results, err := r.Retrieve("list all passengers")
	require.NoError(t, err)
	assert.Len(t, results, topK)
}

func TestRetrieveRerankReorders(t *testing.T) {
	mgr := newTestManager(t, 20)

	// Give every candidate score zero except one, which must surface
	// at the top regardless of its dense rank.
	dense, err := mgr.Search("list all passenger names on every booking today", denseKLong)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(dense), rerankCandidates)

	boosted := dense[rerankCandidates-1].Passage.Content
	mock := &rerank.Mock{Scores: map[string]float64{boosted: 9.5}}
	r := NewRetriever(mgr, mock)

	results, err := r.Retrieve("list all passenger names on every booking today")
	require.NoError(t, err)
	require.Len(t, results, topK)
	assert.Equal(t, boosted, results[0].Passage.Content)
}

func TestRetrieveRerankFailureDegradesToDense(t *testing.T) {
	mgr := newTestManager(t, 20)
	mock := &rerank.Mock{Err: fmt.Errorf("reranker down")}
	r := NewRetriever(mgr, mock)

	results, err := r.Retrieve("list all passenger names on every booking today")
	require.NoError(t, err)
	assert.Len(t, results, topK)
}

func TestRetrieveSmallIndex(t *testing.T) {
	mgr := newTestManager(t, 3)
	r := NewRetriever(mgr, nil)

	results, err := r.Retrieve("what is in the small index right now")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
