package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docqa.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Assemble   AssembleConfig   `yaml:"assemble"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Progress   ProgressConfig   `yaml:"progress"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BodyLimitMB  int           `yaml:"body_limit_mb"`
	AllowOrigins []string      `yaml:"allow_origins"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Dir      string `yaml:"dir"`
	Metric   string `yaml:"metric"` // "cosine" or "inner_product"
	Autosave bool   `yaml:"autosave"`
}

// ChunkConfig holds chunking configuration. Sizes are in runes.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig holds directory ingestion configuration.
type IngestConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	MaxFileMB int      `yaml:"max_file_mb"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK              int     `yaml:"top_k"`
	MaxTopK           int     `yaml:"max_top_k"`
	MinScoreThreshold float64 `yaml:"min_score_threshold"` // Filter results below this score (0 = disabled)
}

// AssembleConfig holds context assembly configuration.
type AssembleConfig struct {
	MaxContextUnits int    `yaml:"max_context_units"`
	Unit            string `yaml:"unit"` // "chars" or "words"
}

// RetryConfig is shared by both external service clients.
type RetryConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "ollama", "openai", "hash"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	CacheSize   int    `yaml:"cache_size"`
	RetryConfig `yaml:",inline"`
}

// GenerationConfig holds generative model configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "ollama", "echo"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	RetryConfig `yaml:",inline"`
}

// ProgressConfig holds progress session retention.
type ProgressConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// ExportConfig holds the pgvector export target.
type ExportConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Table       string `yaml:"table"`
	BatchSize   int    `yaml:"batch_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

const defaultOllamaHost = "http://localhost:11434"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 330 * time.Second,
			BodyLimitMB:  50,
			AllowOrigins: []string{"*"},
		},
		Index: IndexConfig{
			Dir:      ".docqa",
			Metric:   "cosine",
			Autosave: true,
		},
		Chunk: ChunkConfig{
			Size:    800,
			Overlap: 150,
		},
		Ingest: IngestConfig{
			Includes:  []string{"**/*.txt", "**/*.md", "**/*.pdf", "**/*.html", "**/*.htm"},
			Excludes:  []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/.docqa/**"},
			MaxFileMB: 50,
		},
		Retrieve: RetrieveConfig{
			TopK:    5,
			MaxTopK: 50,
		},
		Assemble: AssembleConfig{
			MaxContextUnits: 6000,
			Unit:            "chars",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BaseURL:   defaultOllamaHost,
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 32,
			CacheSize: 256,
			RetryConfig: RetryConfig{
				Timeout:        60 * time.Second,
				MaxRetries:     3,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     10 * time.Second,
			},
		},
		Generation: GenerationConfig{
			Provider:    "ollama",
			Model:       "llama3.2:3b",
			BaseURL:     defaultOllamaHost,
			Temperature: 0.2,
			MaxTokens:   1024,
			RetryConfig: RetryConfig{
				Timeout:        300 * time.Second,
				MaxRetries:     2,
				InitialBackoff: time.Second,
				MaxBackoff:     10 * time.Second,
			},
		},
		Progress: ProgressConfig{
			MaxSessions: 100,
		},
		Export: ExportConfig{
			Table:     "docqa_chunks",
			BatchSize: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if c.Embedding.Provider == "ollama" {
			c.Embedding.BaseURL = host
		}
		if c.Generation.Provider == "ollama" {
			c.Generation.BaseURL = host
		}
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if model := os.Getenv("DOCQA_EMBED_MODEL"); model != "" {
		c.Embedding.Model = model
	}
	if addr := os.Getenv("DOCQA_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dir := os.Getenv("DOCQA_INDEX_DIR"); dir != "" {
		c.Index.Dir = dir
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Export.DatabaseURL = url
	}
	if level := os.Getenv("DOCQA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDir resolves the index directory against root unless it is absolute.
func (c *Config) IndexDir(root string) string {
	if filepath.IsAbs(c.Index.Dir) {
		return c.Index.Dir
	}
	return filepath.Join(root, c.Index.Dir)
}

// DocumentsDBPath returns the path of the document registry.
func DocumentsDBPath(indexDir string) string {
	return filepath.Join(indexDir, "documents.db")
}

// EnsureIndexDir ensures the index directory exists.
func EnsureIndexDir(indexDir string) error {
	return os.MkdirAll(indexDir, 0755)
}
