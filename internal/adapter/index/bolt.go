// Package index implements the persistent vector index over passage
// embeddings. The default backend is a local BoltDB file with an
// in-memory vector cache and brute-force cosine search; a qdrant
// backend is available for deployments with an external ANN server.
package index

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var bucketPassages = []byte("passages")

// defaultEmbedBatch bounds peak memory during a rebuild.
const defaultEmbedBatch = 500

// BoltIndex stores (embedding, passage) pairs in a BoltDB file.
// Search is brute-force cosine over an in-memory cache, which is fine
// for single-document corpora; the index is an opaque ANN oracle to
// its callers.
type BoltIndex struct {
	path      string
	embedder  port.Embedder
	batchSize int

	mu      sync.RWMutex
	db      *bbolt.DB
	entries map[string]boltEntry
}

type boltEntry struct {
	passage domain.Passage
	vector  []float32
}

type storedEntry struct {
	Passage domain.Passage `json:"p"`
	Vector  []float32      `json:"v"`
}

// OpenBolt opens (or creates) the index file at path and loads its
// vectors into memory.
func OpenBolt(path string, embedder port.Embedder, batchSize int) (*BoltIndex, error) {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatch
	}
	idx := &BoltIndex{
		path:      path,
		embedder:  embedder,
		batchSize: batchSize,
		entries:   make(map[string]boltEntry),
	}
	if err := idx.open(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *BoltIndex) open() error {
	db, err := bbolt.Open(s.path, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPassages)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create passages bucket: %w", err)
	}

	entries := make(map[string]boltEntry)
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPassages).ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			entries[string(k)] = boltEntry{passage: stored.Passage, vector: stored.Vector}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load vectors: %w", err)
	}

	s.db = db
	s.entries = entries
	return nil
}

// Rebuild drops the persisted index and re-embeds everything. The old
// file is removed only here; nothing partial is visible until batches
// start landing in the fresh database.
func (s *BoltIndex) Rebuild(passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := s.open(); err != nil {
		return err
	}

	return s.addLocked(passages)
}

// Add embeds and inserts passages into the existing index.
func (s *BoltIndex) Add(passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(passages)
}

func (s *BoltIndex) addLocked(passages []domain.Passage) error {
	inserted := 0
	for start := 0; start < len(passages); start += s.batchSize {
		end := start + s.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		vectors, err := s.embedBatch(batch)
		if err != nil {
			return err
		}

		err = s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketPassages)
			for i, passage := range batch {
				if vectors[i] == nil {
					continue
				}
				data, err := json.Marshal(storedEntry{Passage: passage, Vector: vectors[i]})
				if err != nil {
					return err
				}
				if err := b.Put([]byte(passage.ID), data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store batch: %w", err)
		}

		for i, passage := range batch {
			if vectors[i] == nil {
				continue
			}
			s.entries[passage.ID] = boltEntry{passage: passage, vector: vectors[i]}
			inserted++
		}
	}

	if inserted == 0 {
		return domain.ErrEmptyIndex
	}
	return nil
}

// embedBatch embeds a batch, falling back to per-passage embedding
// when the batch call fails so one bad passage cannot sink the rest.
// A nil vector in the result marks a skipped passage.
func (s *BoltIndex) embedBatch(batch []domain.Passage) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.Content
	}

	vectors, err := s.embedder.Embed(texts)
	if err == nil && len(vectors) == len(batch) {
		return vectors, nil
	}
	if err != nil {
		log.Warn("batch embedding failed, retrying passages individually", "batch", len(batch), "error", err)
	}

	vectors = make([][]float32, len(batch))
	for i, text := range texts {
		single, err := s.embedder.Embed([]string{text})
		if err != nil || len(single) == 0 {
			log.Warn("skipping passage, embedding failed", "passage", batch[i].ID, "error", err)
			continue
		}
		vectors[i] = single[0]
	}
	return vectors, nil
}

// Search returns the k nearest passages by cosine similarity.
func (s *BoltIndex) Search(query string, k int) ([]domain.ScoredPassage, error) {
	vectors, err := s.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}
	queryVec := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}

	scores := make([]domain.ScoredPassage, 0, len(s.entries))
	for _, entry := range s.entries {
		scores = append(scores, domain.ScoredPassage{
			Passage: entry.passage,
			Score:   cosineSimilarity(queryVec, entry.vector),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Count returns the number of indexed passages.
func (s *BoltIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close releases the underlying database.
func (s *BoltIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
