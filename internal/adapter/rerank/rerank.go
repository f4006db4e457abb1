// Package rerank provides the cross-encoder reranking client. The
// reranker is an external collaborator that scores (query, passage)
// pairs; this client speaks the text-embeddings-inference /rerank
// shape, which local cross-encoder servers expose.
package rerank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docrag/config"
	"docrag/internal/port"
)

// Client calls an HTTP reranking endpoint.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a reranker client from configuration.
func New(cfg config.RerankConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:8080/rerank"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Rerank scores each (query, text) pair. Results keep the input
// indexes; callers decide how to sort.
func (r *Client) Rerank(query string, texts []string) ([]port.RerankedResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", r.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reranker returned status %d: %s", resp.StatusCode, string(body))
	}

	var scored []rerankResult
	if err := json.Unmarshal(body, &scored); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]port.RerankedResult, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(texts) {
			continue
		}
		results = append(results, port.RerankedResult{Index: s.Index, Score: s.Score})
	}

	return results, nil
}

// ModelName returns the reranker model name.
func (r *Client) ModelName() string {
	return r.model
}

// Mock scores pairs with a fixed function for tests.
type Mock struct {
	// Scores maps text content to a relevance score; unlisted texts
	// score zero.
	Scores map[string]float64
	// Err, when set, is returned by every call.
	Err error
}

func (m *Mock) Rerank(_ string, texts []string) ([]port.RerankedResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	results := make([]port.RerankedResult, len(texts))
	for i, t := range texts {
		results[i] = port.RerankedResult{Index: i, Score: m.Scores[t]}
	}
	return results, nil
}

func (m *Mock) ModelName() string {
	return "mock"
}
