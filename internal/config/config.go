package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tourguide API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Session    SessionConfig    `yaml:"session"`
	Cache      CacheConfig      `yaml:"cache"`
	Reviews    ReviewsConfig    `yaml:"reviews"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig lists bearer keys for the cache management endpoint. Empty disables the check.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings. The write timeout does not apply to
// answer streams, which lift the deadline once headers are sent.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig describes the vector index and the public URLs used to build cards.
type CatalogConfig struct {
	IndexName       string `yaml:"index_name"`
	KeyPrefix       string `yaml:"key_prefix"`
	Dimensions      int    `yaml:"dimensions"`
	DistanceMetric  string `yaml:"distance_metric"` // COSINE, L2, IP
	Algorithm       string `yaml:"algorithm"`       // HNSW, FLAT
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	HNSWEFRuntime   int    `yaml:"hnsw_ef_runtime"` // 0 keeps the server default
	StatsTTLSec     int    `yaml:"stats_ttl_sec"`
	BackendURL      string `yaml:"backend_url"`
	FrontendURL     string `yaml:"frontend_url"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	MaxBatchSize int    `yaml:"max_batch_size"`
	CacheTTLHour int    `yaml:"cache_ttl_hours"`
}

// GenerationConfig holds the chat completion settings.
type GenerationConfig struct {
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	ClassifyModel string  `yaml:"classify_model"`
	ReviewModel   string  `yaml:"review_model"`
	PromptVersion string  `yaml:"prompt_version"`
	ReplayDelayMS int     `yaml:"replay_delay_ms"`
	StreamBuffer  int     `yaml:"stream_buffer"`
}

// SessionConfig bounds in-memory conversation state.
type SessionConfig struct {
	MaxHistory      int `yaml:"max_history"`
	IdleTimeoutMin  int `yaml:"idle_timeout_min"`
	ContextMessages int `yaml:"context_messages"`
	SweepSec        int `yaml:"sweep_interval_sec"`
}

// CacheConfig sizes the in-process TTL caches.
type CacheConfig struct {
	ReviewTTLHours   int `yaml:"review_ttl_hours"`
	ReviewMaxEntries int `yaml:"review_max_entries"`
	AnswerTTLMin     int `yaml:"answer_ttl_min"`
	AnswerMaxEntries int `yaml:"answer_max_entries"`
}

// ReviewsConfig points at the MySQL review store. An empty DSN disables /SumaryReview.
type ReviewsConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_sec"`
}

// Enabled reports whether a review store is configured.
func (r ReviewsConfig) Enabled() bool { return r.DSN != "" }

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Catalog.IndexName == "" {
		c.Catalog.IndexName = "tourguide:catalog:idx"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "tourguide:chunk:"
	}
	if c.Catalog.DistanceMetric == "" {
		c.Catalog.DistanceMetric = "COSINE"
	}
	if c.Catalog.Algorithm == "" {
		c.Catalog.Algorithm = "HNSW"
	}
	if c.Catalog.HNSWM <= 0 {
		c.Catalog.HNSWM = 16
	}
	if c.Catalog.HNSWEFConstruct <= 0 {
		c.Catalog.HNSWEFConstruct = 200
	}
	if c.Catalog.StatsTTLSec <= 0 {
		c.Catalog.StatsTTLSec = 300
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 128
	}
	if c.Embedding.CacheTTLHour <= 0 {
		c.Embedding.CacheTTLHour = 24 * 7
	}
	if c.Catalog.Dimensions <= 0 {
		c.Catalog.Dimensions = c.Embedding.Dimensions
	}

	if c.Generation.Model == "" {
		c.Generation.Model = "deepseek/deepseek-chat"
	}
	if c.Generation.ClassifyModel == "" {
		c.Generation.ClassifyModel = c.Generation.Model
	}
	if c.Generation.ReviewModel == "" {
		c.Generation.ReviewModel = c.Generation.Model
	}
	if c.Generation.PromptVersion == "" {
		c.Generation.PromptVersion = "v1"
	}
	if c.Generation.ReplayDelayMS < 0 {
		c.Generation.ReplayDelayMS = 0
	}

	if c.Session.MaxHistory <= 0 {
		c.Session.MaxHistory = 20
	}
	if c.Session.IdleTimeoutMin <= 0 {
		c.Session.IdleTimeoutMin = 30
	}
	if c.Session.ContextMessages <= 0 {
		c.Session.ContextMessages = 6
	}
	if c.Session.SweepSec <= 0 {
		c.Session.SweepSec = 60
	}

	if c.Cache.ReviewTTLHours <= 0 {
		c.Cache.ReviewTTLHours = 24
	}
	if c.Cache.ReviewMaxEntries <= 0 {
		c.Cache.ReviewMaxEntries = 1000
	}
	if c.Cache.AnswerTTLMin <= 0 {
		c.Cache.AnswerTTLMin = 60
	}
	if c.Cache.AnswerMaxEntries <= 0 {
		c.Cache.AnswerMaxEntries = 1000
	}

	if c.Reviews.MaxOpenConns <= 0 {
		c.Reviews.MaxOpenConns = 10
	}
	if c.Reviews.MaxIdleConns <= 0 {
		c.Reviews.MaxIdleConns = 5
	}
	if c.Reviews.ConnMaxLifetime <= 0 {
		c.Reviews.ConnMaxLifetime = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch strings.ToUpper(c.Catalog.DistanceMetric) {
	case "COSINE", "L2", "IP":
	default:
		return fmt.Errorf("catalog.distance_metric must be COSINE, L2 or IP, got %q", c.Catalog.DistanceMetric)
	}
	switch strings.ToUpper(c.Catalog.Algorithm) {
	case "HNSW", "FLAT":
	default:
		return fmt.Errorf("catalog.algorithm must be HNSW or FLAT, got %q", c.Catalog.Algorithm)
	}
	if c.Catalog.HNSWEFRuntime < 0 {
		return fmt.Errorf("catalog.hnsw_ef_runtime must not be negative, got %d", c.Catalog.HNSWEFRuntime)
	}
	if c.Catalog.Dimensions != c.Embedding.Dimensions {
		return fmt.Errorf(
			"catalog.dimensions (%d) must match embedding.dimensions (%d)",
			c.Catalog.Dimensions, c.Embedding.Dimensions,
		)
	}
	if c.Catalog.BackendURL == "" {
		return fmt.Errorf("catalog.backend_url is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %v", c.Generation.Temperature)
	}
	if c.Session.ContextMessages > c.Session.MaxHistory {
		return fmt.Errorf(
			"session.context_messages (%d) must not exceed session.max_history (%d)",
			c.Session.ContextMessages, c.Session.MaxHistory,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
