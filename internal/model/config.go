package model

import "time"

// Config holds every runtime setting. Each section maps to a config file
// block and to ACSENSE_<SECTION>_<KEY> environment variables.
type Config struct {
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Dependency  DependencyConfig  `yaml:"dependency" mapstructure:"dependency"`
	Patterns    PatternsConfig    `yaml:"patterns" mapstructure:"patterns"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// EmbeddingConfig configures the similarity tier and its provider
type EmbeddingConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Provider          string        `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	Threshold         float64       `yaml:"threshold" mapstructure:"threshold"` // Similarity and acceptance threshold
	TopK              int           `yaml:"top_k" mapstructure:"top_k"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig configures the persistent embedding cache
type CacheConfig struct {
	Dir        string        `yaml:"dir" mapstructure:"dir"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// DependencyConfig configures the dependency-parse tier
type DependencyConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Threshold float64       `yaml:"threshold" mapstructure:"threshold"`
	MemoTTL   time.Duration `yaml:"memo_ttl" mapstructure:"memo_ttl"` // In-process parse memo lifetime
}

// PatternsConfig points at the pattern definition file
type PatternsConfig struct {
	File string `yaml:"file" mapstructure:"file"` // Empty uses the built-in set
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// ConcurrencyConfig controls batch parsing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"` // Empty disables the listener
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Enabled:           false, // Needs a provider and network access
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			Timeout:           30 * time.Second,
			MaxRetries:        2,
			RequestsPerSecond: 5,
			BatchSize:         256,
			Threshold:         0.80,
			TopK:              5,
		},
		Cache: CacheConfig{
			Dir:        ".cache/embeddings",
			TTL:        30 * 24 * time.Hour,
			MaxEntries: 50000,
		},
		Dependency: DependencyConfig{
			Enabled:   true,
			BaseURL:   "http://localhost:8090",
			Model:     "en_core_web_sm",
			Timeout:   10 * time.Second,
			Threshold: 0.7,
			MemoTTL:   10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
