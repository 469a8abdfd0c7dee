package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Catalog:  CatalogConfig{BackendURL: "http://localhost:5000"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too big", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"no redis", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"bad metric", func(c *Config) { c.Catalog.DistanceMetric = "HAMMING" }, "distance_metric"},
		{"lowercase metric", func(c *Config) { c.Catalog.DistanceMetric = "cosine" }, ""},
		{"flat index", func(c *Config) { c.Catalog.Algorithm = "flat" }, ""},
		{"bad algorithm", func(c *Config) { c.Catalog.Algorithm = "IVF" }, "catalog.algorithm"},
		{"negative ef runtime", func(c *Config) { c.Catalog.HNSWEFRuntime = -1 }, "hnsw_ef_runtime"},
		{"dims mismatch", func(c *Config) { c.Catalog.Dimensions = 768 }, "catalog.dimensions (768)"},
		{"no backend url", func(c *Config) { c.Catalog.BackendURL = "" }, "backend_url"},
		{"temperature", func(c *Config) { c.Generation.Temperature = 2.5 }, "temperature"},
		{"context over history", func(c *Config) {
			c.Session.ContextMessages = 30
		}, "context_messages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 30 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("ReadinessTimeout = %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Catalog.IndexName != "tourguide:catalog:idx" || cfg.Catalog.KeyPrefix != "tourguide:chunk:" ||
		cfg.Catalog.Algorithm != "HNSW" {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.HNSWM != 16 || cfg.Catalog.HNSWEFConstruct != 200 {
		t.Errorf("hnsw = %d/%d", cfg.Catalog.HNSWM, cfg.Catalog.HNSWEFConstruct)
	}
	if cfg.Catalog.Dimensions != cfg.Embedding.Dimensions || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions = %d/%d", cfg.Catalog.Dimensions, cfg.Embedding.Dimensions)
	}
	if cfg.Generation.ClassifyModel != cfg.Generation.Model || cfg.Generation.ReviewModel != cfg.Generation.Model {
		t.Errorf("generation models = %+v", cfg.Generation)
	}
	if cfg.Session.MaxHistory != 20 || cfg.Session.IdleTimeoutMin != 30 || cfg.Session.ContextMessages != 6 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Cache.ReviewTTLHours != 24 || cfg.Cache.AnswerTTLMin != 60 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.ReviewMaxEntries != 1000 || cfg.Cache.AnswerMaxEntries != 1000 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Reviews.Enabled() {
		t.Error("reviews must be disabled without a dsn")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Catalog:    CatalogConfig{IndexName: "idx", HNSWM: 32},
		Embedding:  EmbeddingConfig{Dimensions: 768},
		Generation: GenerationConfig{Model: "m", ClassifyModel: "small"},
		Cache:      CacheConfig{AnswerTTLMin: 5},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 || cfg.HTTP.ShutdownSec != 5 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Catalog.IndexName != "idx" || cfg.Catalog.HNSWM != 32 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.Dimensions != 768 {
		t.Errorf("catalog dimensions must follow embedding, got %d", cfg.Catalog.Dimensions)
	}
	if cfg.Generation.ClassifyModel != "small" || cfg.Generation.ReviewModel != "m" {
		t.Errorf("generation = %+v", cfg.Generation)
	}
	if cfg.Cache.AnswerTTLMin != 5 {
		t.Errorf("AnswerTTLMin = %d", cfg.Cache.AnswerTTLMin)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TG_TEST_SET", "value")
	t.Setenv("TG_TEST_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"a: ${TG_TEST_SET}", "a: value"},
		{"a: ${TG_TEST_SET:-fallback}", "a: value"},
		{"a: ${TG_TEST_EMPTY:-fallback}", "a: fallback"},
		{"a: ${TG_TEST_UNSET_VAR}", "a: "},
		{"a: ${TG_TEST_UNSET_VAR:-http://x:1}", "a: http://x:1"},
		{"a: plain", "a: plain"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Setenv("TG_TEST_REDIS", "redis:6379")
	doc := `
http:
  port: 8080
database:
  addrs: ["${TG_TEST_REDIS}"]
catalog:
  backend_url: http://backend:5000
embedding:
  dimensions: 3072
reviews:
  dsn: "${TG_TEST_DSN:-user:pw@tcp(db:3306)/tours?parseTime=true}"
auth:
  api_keys: ["k1"]
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Addrs[0] != "redis:6379" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.Catalog.Dimensions != 3072 {
		t.Errorf("catalog dimensions = %d", cfg.Catalog.Dimensions)
	}
	if !cfg.Reviews.Enabled() || !strings.Contains(cfg.Reviews.DSN, "tcp(db:3306)") {
		t.Errorf("dsn = %q", cfg.Reviews.DSN)
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 || len(cfg.Database.Addrs) == 0 {
		t.Errorf("cfg = %+v", cfg)
	}
}
