// Package llm provides the chat model client used for query rewriting
// and answer generation.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docrag/config"
)

// OllamaClient talks to a local Ollama server's native API.
type OllamaClient struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllama creates a chat client from configuration. Every Generate
// call is bounded by the configured timeout; the upstream behavior had
// no bound at all, which could wedge a connection forever.
func NewOllama(cfg config.ChatConfig) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OllamaClient{
		baseURL: baseURL,
		model:   cfg.Model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate sends a prompt and accumulates the streamed completion.
// Answer quality depends on determinism here, so temperature is 0.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  true,
		Options: generateOptions{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat model returned status %d: %s", resp.StatusCode, body)
	}

	// Ollama streams one JSON object per line; concatenate the chunks.
	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse response chunk: %w", err)
		}
		full.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading response stream: %w", err)
	}

	return strings.TrimSpace(full.String()), nil
}

// ModelName returns the chat model name.
func (c *OllamaClient) ModelName() string {
	return c.model
}

// Mock returns canned responses for tests.
type Mock struct {
	// Response is returned for every prompt unless Fn is set.
	Response string
	// Fn, when set, computes the response from the prompt.
	Fn func(prompt string) (string, error)
	// Prompts records every prompt received.
	Prompts []string
}

func (m *Mock) Generate(_ context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Fn != nil {
		return m.Fn(prompt)
	}
	return m.Response, nil
}

func (m *Mock) ModelName() string {
	return "mock"
}
