package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for paperqa.
type Config struct {
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Index      IndexConfig      `yaml:"index"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkConfig holds chunking configuration.
type ChunkConfig struct {
	MaxTokens int    `yaml:"max_tokens"`
	Overlap   int    `yaml:"overlap"`
	Encoding  string `yaml:"encoding"` // tiktoken encoding, e.g. "cl100k_base"
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // OpenAI-compatible endpoint, empty for api.openai.com
	Dimension int    `yaml:"dimension"`
}

// LLMConfig holds answer generation configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "mock"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
}

// ResilienceConfig bounds retries of external model calls.
type ResilienceConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffBase       time.Duration `yaml:"backoff_base"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Timeout           time.Duration `yaml:"timeout"`             // per attempt
	BreakerFailures   uint32        `yaml:"breaker_failures"`    // consecutive failures that open the breaker
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown"`
}

// StoreConfig selects where index artifacts live.
type StoreConfig struct {
	Backend   string `yaml:"backend"` // "file", "bolt", "memory"
	VectorDir string `yaml:"vector_dir"`
	BoltPath  string `yaml:"bolt_path"`
}

// CacheConfig sizes the loaded-index cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	Candidates   int      `yaml:"candidates"` // chunks fetched before filtering
	TopK         int      `yaml:"top_k"`      // chunks kept for the prompt
	Keywords     []string `yaml:"keywords"`   // relevance filter terms, empty disables
	SnippetChars int      `yaml:"snippet_chars"`
}

// IndexConfig holds batch indexing configuration.
type IndexConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	UploadDir      string   `yaml:"upload_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json", "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			MaxTokens: 500,
			Overlap:   50,
			Encoding:  "cl100k_base",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:     3,
			BackoffBase:     2 * time.Second,
			Timeout:         60 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend:   "file",
			VectorDir: "vector_store",
			BoltPath:  filepath.Join("vector_store", "index.db"),
		},
		Cache: CacheConfig{
			Capacity: 8,
		},
		Retrieve: RetrieveConfig{
			Candidates:   20,
			TopK:         5,
			Keywords:     []string{"loss"},
			SnippetChars: 160,
		},
		Index: IndexConfig{
			Dir:      "uploads",
			Includes: []string{"*.pdf"},
			Workers:  2,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			UploadDir:      "uploads",
			MaxUploadBytes: 10 * 1024 * 1024,
			CORSOrigins:    []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// LoadFromDir loads configuration from a directory (looks for paperqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "paperqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".paperqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunk.MaxTokens < 1 {
		return fmt.Errorf("chunk.max_tokens must be positive, got %d", c.Chunk.MaxTokens)
	}
	if c.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk.overlap must not be negative, got %d", c.Chunk.Overlap)
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be positive, got %d", c.Resilience.MaxAttempts)
	}
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	switch c.Store.Backend {
	case "file", "bolt", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
