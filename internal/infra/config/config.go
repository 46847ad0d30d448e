package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yaml"

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP           HTTPConfig        `yaml:"http"`
	AstraDB        AstraDBConfig     `yaml:"astra_db"`
	EmbeddingModel ModelConfig       `yaml:"embedding_model"`
	Retriever      RetrieverConfig   `yaml:"retriever"`
	LLM            LLMConfig         `yaml:"llm"`
	VectorStore    VectorStoreConfig `yaml:"vector_store"`
	Postgres       PostgresConfig    `yaml:"postgres"`
	Cache          CacheConfig       `yaml:"cache"`
	Dataset        DatasetConfig     `yaml:"dataset"`

	raw map[string]any
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	AllowOrigins []string        `yaml:"allow_origins"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// AstraDBConfig names the Astra collection. Credentials come from the environment.
type AstraDBConfig struct {
	CollectionName string `yaml:"collection_name"`
}

// ModelConfig selects a provider and model for the embedding client.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	ModelName string `yaml:"model_name"`
}

// RetrieverConfig drives top-k retrieval.
type RetrieverConfig struct {
	TopK             int           `yaml:"top_k"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxContextTokens int           `yaml:"max_context_tokens"`
	TokenEncoding    string        `yaml:"token_encoding"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	ModelName   string        `yaml:"model_name"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// VectorStoreConfig picks the similarity search backend.
type VectorStoreConfig struct {
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
}

// PostgresConfig contains DSN and pooling settings for the pgvector backend.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

// DatasetConfig locates the review CSV consumed by ingestion.
type DatasetConfig struct {
	Path       string `yaml:"path"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`
}

// Load reads the file named by CONFIG_PATH (or DefaultPath) and applies env overrides.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "invalid config", err)
	}
	return cfg, nil
}

// LoadFile parses a YAML settings document. Missing or malformed files fail with config_error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("read config file %s", path), err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("parse config file %s", path), err)
	}
	if raw == nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("config file %s is empty", path), nil)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("decode config file %s", path), err)
	}
	cfg.raw = raw
	return cfg, nil
}

// Sections returns the top-level keys present in the source file, sorted.
func (c *Config) Sections() []string {
	keys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a dotted path such as "retriever.top_k" against the file contents.
func (c *Config) Lookup(path string) (any, bool) {
	var current any = c.raw
	for _, part := range strings.Split(path, ".") {
		section, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = section[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ASTRA_DB_COLLECTION"); v != "" {
		cfg.AstraDB.CollectionName = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel.ModelName = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.ModelName = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.TopK = parsed
		}
	}
	if v := os.Getenv("RETRIEVER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Retriever.Timeout = parsed
		}
	}
	if v := os.Getenv("VECTOR_STORE_PROVIDER"); v != "" {
		cfg.VectorStore.Provider = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Dataset.S3Endpoint = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Dataset.S3Region = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
}

// Model sections carry no defaults so that a missing provider or model
// surfaces where the client is built.
func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			AllowOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Retriever: RetrieverConfig{
			Timeout:          10 * time.Second,
			MaxContextTokens: 6000,
			TokenEncoding:    "cl100k_base",
		},
		LLM: LLMConfig{
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			Provider:  "astra",
			Dimension: 768,
		},
		Postgres: PostgresConfig{
			Table:    "product_documents",
			MaxConns: 4,
		},
		Cache: CacheConfig{
			Prefix: "embed",
			TTL:    24 * time.Hour,
		},
		Dataset: DatasetConfig{
			Path: "data/product_reviews.csv",
		},
	}
}

// Validate ensures the server level configuration is safe to use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Address) == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		return errors.New("http timeouts cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rate_limit.requests_per_minute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rate_limit.burst must be positive")
		}
	}
	if c.Retriever.Timeout < 0 || c.LLM.Timeout < 0 {
		return errors.New("outbound call timeouts cannot be negative")
	}
	if c.Retriever.MaxContextTokens < 0 {
		return errors.New("retriever.max_context_tokens cannot be negative")
	}
	if c.VectorStore.Dimension < 0 {
		return errors.New("vector_store.dimension cannot be negative")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when the embedding cache is enabled")
	}
	return nil
}
