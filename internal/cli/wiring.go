package cli

import (
	"fmt"

	"docrag/config"
	"docrag/internal/adapter/chunk"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
	"docrag/internal/adapter/index"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/rerank"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// newEmbedder builds the configured embedding client.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "mock":
		return embedding.NewMock(cfg.Embedding.Dimension), nil
	case "", "ollama", "openai":
		return embedding.New(cfg.Embedding)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newIndexManager builds the index manager over the configured backend.
func newIndexManager(cfg *config.Config, embedder port.Embedder) (*index.Manager, error) {
	switch cfg.Embedding.VectorProvider {
	case "qdrant":
		return index.NewManager(func() (port.VectorIndex, error) {
			return index.OpenQdrant(cfg.Embedding.QdrantAddr, cfg.Embedding.QdrantCollection, embedder, cfg.Ingest.EmbedBatchSize)
		}), nil
	case "", "bolt":
		return index.NewManager(func() (port.VectorIndex, error) {
			return index.OpenBolt(cfg.Paths.IndexPath, embedder, cfg.Ingest.EmbedBatchSize)
		}), nil
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Embedding.VectorProvider)
	}
}

// newIngestor builds the full ingestion pipeline.
func newIngestor(cfg *config.Config, manager *index.Manager) (*usecase.Ingestor, error) {
	codec, err := chunk.NewTiktokenCodec("")
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	splitter := chunk.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	processor := chunk.NewProcessor(splitter, codec, cfg.Ingest.MaxChars, cfg.Ingest.MaxTokens)

	return usecase.NewIngestor(cfg, extract.New(cfg.OCR), processor, manager), nil
}

// newQueryProcessor builds the query pipeline. The reranker is only
// wired when an endpoint is configured.
func newQueryProcessor(cfg *config.Config, manager *index.Manager) *usecase.QueryProcessor {
	var reranker port.Reranker
	if cfg.Rerank.Endpoint != "" {
		reranker = rerank.New(cfg.Rerank)
	}

	retriever := usecase.NewRetriever(manager, reranker)
	return usecase.NewQueryProcessor(retriever, llm.NewOllama(cfg.Chat))
}
