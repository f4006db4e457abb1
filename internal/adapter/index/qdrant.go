package index

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// QdrantIndex implements the vector index against a qdrant server over
// gRPC. Selected with vector_provider: qdrant for deployments that
// outgrow the local brute-force backend.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	embedder    port.Embedder
	batchSize   int
}

// OpenQdrant connects to a qdrant server and ensures the collection
// exists with the embedder's dimension.
func OpenQdrant(addr, collection string, embedder port.Embedder, batchSize int) (*QdrantIndex, error) {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatch
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		embedder:    embedder,
		batchSize:   batchSize,
	}

	if err := idx.ensureCollection(context.Background(), false); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, recreate bool) error {
	collections, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	exists := false
	for _, col := range collections.GetCollections() {
		if col.GetName() == q.collection {
			exists = true
			break
		}
	}

	if exists && recreate {
		_, err := q.collections.Delete(ctx, &qdrantclient.DeleteCollection{
			CollectionName: q.collection,
		})
		if err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		exists = false
	}

	if !exists {
		_, err = q.collections.Create(ctx, &qdrantclient.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: &qdrantclient.VectorsConfig{
				Config: &qdrantclient.VectorsConfig_Params{
					Params: &qdrantclient.VectorParams{
						Size:     uint64(q.embedder.Dimension()),
						Distance: qdrantclient.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	return nil
}

// Rebuild recreates the collection and re-embeds everything.
func (q *QdrantIndex) Rebuild(passages []domain.Passage) error {
	if err := q.ensureCollection(context.Background(), true); err != nil {
		return err
	}
	return q.Add(passages)
}

// Add embeds and upserts passages in bounded batches.
func (q *QdrantIndex) Add(passages []domain.Passage) error {
	ctx := context.Background()
	inserted := 0

	for start := 0; start < len(passages); start += q.batchSize {
		end := start + q.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}
		vectors, err := q.embedder.Embed(texts)
		if err != nil {
			log.Warn("skipping batch, embedding failed", "batch", len(batch), "error", err)
			continue
		}

		points := make([]*qdrantclient.PointStruct, 0, len(batch))
		for i, passage := range batch {
			if i >= len(vectors) || vectors[i] == nil {
				continue
			}
			payload := map[string]*qdrantclient.Value{
				"content": {Kind: &qdrantclient.Value_StringValue{StringValue: passage.Content}},
				"source":  {Kind: &qdrantclient.Value_StringValue{StringValue: passage.Source}},
			}
			if passage.Page != nil {
				payload["page"] = &qdrantclient.Value{
					Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(*passage.Page)},
				}
			}
			points = append(points, &qdrantclient.PointStruct{
				Id: &qdrantclient.PointId{
					PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: passage.ID},
				},
				Vectors: &qdrantclient.Vectors{
					VectorsOptions: &qdrantclient.Vectors_Vector{
						Vector: &qdrantclient.Vector{Data: vectors[i]},
					},
				},
				Payload: payload,
			})
		}
		if len(points) == 0 {
			continue
		}

		_, err = q.points.Upsert(ctx, &qdrantclient.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
		inserted += len(points)
	}

	if inserted == 0 {
		return domain.ErrEmptyIndex
	}
	return nil
}

// Search embeds the query and runs a similarity search on the server.
func (q *QdrantIndex) Search(query string, k int) ([]domain.ScoredPassage, error) {
	vectors, err := q.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	resp, err := q.points.Search(context.Background(), &qdrantclient.SearchPoints{
		CollectionName: q.collection,
		Vector:         vectors[0],
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"content", "source", "page"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]domain.ScoredPassage, 0, len(resp.Result))
	for _, point := range resp.Result {
		passage := domain.Passage{
			ID: point.GetId().GetUuid(),
		}
		if v, ok := point.Payload["content"]; ok {
			passage.Content = v.GetStringValue()
		}
		if v, ok := point.Payload["source"]; ok {
			passage.Source = v.GetStringValue()
		}
		if v, ok := point.Payload["page"]; ok {
			page := int(v.GetIntegerValue())
			passage.Page = &page
		}
		results = append(results, domain.ScoredPassage{
			Passage: passage,
			Score:   float64(point.GetScore()),
		})
	}

	return results, nil
}

// Count returns the number of points in the collection.
func (q *QdrantIndex) Count() (int, error) {
	resp, err := q.points.Count(context.Background(), &qdrantclient.CountPoints{
		CollectionName: q.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close tears down the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}
