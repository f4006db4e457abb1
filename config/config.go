package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document Q&A server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Rerank    RerankConfig    `yaml:"rerank"`
	OCR       OCRConfig       `yaml:"ocr"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds websocket server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxMessageBytes bounds inbound frames; it must exceed the largest
	// expected document upload.
	MaxMessageBytes int64 `yaml:"max_message_bytes"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// DocumentDir is where uploaded documents land and where ingestion
	// globs for input files.
	DocumentDir string `yaml:"document_dir"`
	// DatasetDir holds the intermediate extraction output (data.jsonl).
	DatasetDir string `yaml:"dataset_dir"`
	// IndexPath is the vector index database file.
	IndexPath string `yaml:"index_path"`
}

// IngestConfig holds chunking configuration.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MaxChars     int `yaml:"max_chars"`
	MaxTokens    int `yaml:"max_tokens"`
	// Workers caps the chunking worker pool. 0 means min(8, GOMAXPROCS).
	Workers int `yaml:"workers"`
	// EmbedBatchSize bounds how many passages are embedded per index
	// insertion batch.
	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	// TopK is the number of passages returned to the prompt assembler.
	TopK int `yaml:"top_k"`
	// RerankCandidates is how many dense results feed the reranker.
	RerankCandidates int `yaml:"rerank_candidates"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "ollama", "openai", "mock"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	// VectorProvider selects the index backend: "bolt" or "qdrant".
	VectorProvider string `yaml:"vector_provider"`
	// QdrantAddr is the gRPC address when VectorProvider is "qdrant".
	QdrantAddr string `yaml:"qdrant_addr"`
	// QdrantCollection names the collection holding passage vectors.
	QdrantCollection string `yaml:"qdrant_collection"`
}

// ChatConfig holds chat model configuration.
type ChatConfig struct {
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RerankConfig holds cross-encoder reranker configuration.
type RerankConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OCRConfig holds the external OCR tool locations used for scanned PDFs.
type OCRConfig struct {
	TesseractPath string `yaml:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	DPI           int    `yaml:"dpi"`
	Language      string `yaml:"language"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxMessageBytes: 512 << 20,
		},
		Paths: PathsConfig{
			DocumentDir: "documents",
			DatasetDir:  "datasets",
			IndexPath:   filepath.Join("index", "vectors.db"),
		},
		Ingest: IngestConfig{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			MaxChars:       4000,
			MaxTokens:      600,
			Workers:        0,
			EmbedBatchSize: 500,
		},
		Retrieve: RetrieveConfig{
			TopK:             8,
			RerankCandidates: 15,
		},
		Embedding: EmbeddingConfig{
			Provider:         "ollama",
			Model:            "nomic-embed-text",
			BaseURL:          "http://localhost:11434/v1",
			APIKeyEnv:        "OPENAI_API_KEY",
			Dimension:        768,
			Timeout:          120 * time.Second,
			VectorProvider:   "bolt",
			QdrantAddr:       "localhost:6334",
			QdrantCollection: "docrag_passages",
		},
		Chat: ChatConfig{
			Model:   "llama3",
			BaseURL: "http://localhost:11434/api",
			// The upstream behavior had no timeout at all; five minutes
			// bounds a hung generation without cutting off slow local models.
			Timeout: 5 * time.Minute,
		},
		Rerank: RerankConfig{
			Endpoint: "http://localhost:8080/rerank",
			Model:    "ms-marco-MiniLM-L-6-v2",
			Timeout:  30 * time.Second,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			PdftoppmPath:  "pdftoppm",
			DPI:           300,
			Language:      "eng",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.applyEnv(), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg.applyEnv(), nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig().applyEnv(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays environment variables for model identifiers and
// paths so deployments can switch models without editing YAML.
func (c *Config) applyEnv() *Config {
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("DATABASE_LOCATION"); v != "" {
		c.Paths.IndexPath = v
	}
	if v := os.Getenv("DATASET_STORAGE_FOLDER"); v != "" {
		c.Paths.DatasetDir = v
	}
	if v := os.Getenv("DOCUMENT_FOLDER"); v != "" {
		c.Paths.DocumentDir = v
	}
	return c
}

// DatasetFile returns the path of the intermediate extraction output.
func (c *Config) DatasetFile() string {
	return filepath.Join(c.Paths.DatasetDir, "data.jsonl")
}

// EnsureDirs creates the directories the pipeline writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.Paths.DocumentDir,
		c.Paths.DatasetDir,
		filepath.Dir(c.Paths.IndexPath),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
