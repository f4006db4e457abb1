package index

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/embedding"
	"docrag/internal/domain"
	"docrag/internal/port"
)

func makePassages(n int) []domain.Passage {
	passages := make([]domain.Passage, n)
	for i := range passages {
		passages[i] = domain.Passage{
			ID:      fmt.Sprintf("p-%d", i),
			Content: fmt.Sprintf("passage number %d with some distinct content", i),
			Source:  "test.pdf",
		}
	}
	return passages
}

func TestBoltRebuildAndSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	idx, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Rebuild(makePassages(10)))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	results, err := idx.Search("passage number 3", 8)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestBoltSearchSmallIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	idx, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Rebuild(makePassages(3)))

	results, err := idx.Search("anything", 8)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestBoltReloadAfterRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")

	idx, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(makePassages(5)))
	require.NoError(t, idx.Close())

	// A fresh open from the same path sees the persisted index.
	reloaded, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	defer reloaded.Close()

	count, err := reloaded.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestBoltRebuildReplacesOldIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	idx, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Rebuild(makePassages(10)))
	require.NoError(t, idx.Rebuild(makePassages(4)))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBoltRebuildEmptyIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	idx, err := OpenBolt(path, embedding.NewMock(16), 500)
	require.NoError(t, err)
	defer idx.Close()

	err = idx.Rebuild(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestManagerInvalidateForcesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	opened := 0
	mgr := NewManager(func() (port.VectorIndex, error) {
		opened++
		return OpenBolt(path, embedding.NewMock(16), 500)
	})

	require.NoError(t, mgr.Rebuild(makePassages(6)))

	count, err := mgr.Count()
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.Equal(t, 1, opened)

	mgr.Invalidate()

	count, err = mgr.Count()
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.Equal(t, 2, opened)
}
