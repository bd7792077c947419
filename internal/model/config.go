package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Config is the complete fieldscout configuration
type Config struct {
	Domain       string             `yaml:"domain" mapstructure:"domain"`
	Matching     MatchingConfig     `yaml:"matching" mapstructure:"matching"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// MatchingConfig holds strategy thresholds and extraction bounds
type MatchingConfig struct {
	SemanticThreshold float64 `yaml:"semantic_threshold" mapstructure:"semantic_threshold"`
	EntityThreshold   float64 `yaml:"entity_threshold" mapstructure:"entity_threshold"`
	RuleThreshold     float64 `yaml:"rule_threshold" mapstructure:"rule_threshold"`
	KeywordThreshold  float64 `yaml:"keyword_threshold" mapstructure:"keyword_threshold"`
	EntityMinCoverage float64 `yaml:"entity_min_coverage" mapstructure:"entity_min_coverage"`
	RuleConfidence    float64 `yaml:"rule_confidence" mapstructure:"rule_confidence"`
	KeywordGate       float64 `yaml:"keyword_gate" mapstructure:"keyword_gate"`
	SectionBoost      float64 `yaml:"section_boost" mapstructure:"section_boost"`
	MinValueLength    int     `yaml:"min_value_length" mapstructure:"min_value_length"`
	MaxValueLength    int     `yaml:"max_value_length" mapstructure:"max_value_length"`
	UseKnowledgeBase  bool    `yaml:"use_knowledge_base" mapstructure:"use_knowledge_base"`
	TopK              int     `yaml:"top_k" mapstructure:"top_k"`
}

// CacheConfig controls match memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig selects the job store backend
type StoreConfig struct {
	Driver string        `yaml:"driver" mapstructure:"driver"` // memory, sqlite
	DSN    string        `yaml:"dsn" mapstructure:"dsn"`
	JobTTL time.Duration `yaml:"job_ttl" mapstructure:"job_ttl"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxDocuments    int           `yaml:"max_documents" mapstructure:"max_documents"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// ConcurrencyConfig holds worker counts
type ConcurrencyConfig struct {
	FieldWorkers int `yaml:"field_workers" mapstructure:"field_workers"` // Fields resolved in parallel per form
	JobWorkers   int `yaml:"job_workers" mapstructure:"job_workers"`     // Async fill jobs in parallel
}

// RateLimitingConfig limits API clients
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Env   string `yaml:"env" mapstructure:"env"`     // prod, dev
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// DefaultMatchingConfig returns the stock thresholds
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		SemanticThreshold: 0.75,
		EntityThreshold:   0.70,
		RuleThreshold:     0.65,
		KeywordThreshold:  0.55,
		EntityMinCoverage: 0.5,
		RuleConfidence:    0.72,
		KeywordGate:       0.2,
		SectionBoost:      1.2,
		MinValueLength:    10,
		MaxValueLength:    500,
		UseKnowledgeBase:  true,
		TopK:              3,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Domain:   "real_estate",
		Matching: DefaultMatchingConfig(),
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
			Dir:       "", // Empty resolves to ~/.fieldscout/cache
		},
		Store: StoreConfig{
			Driver: "memory",
			DSN:    "fieldscout.db",
			JobTTL: time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxDocuments:    500,
			MaxBodyBytes:    10 << 20,
		},
		Concurrency: ConcurrencyConfig{
			FieldWorkers: 8,
			JobWorkers:   4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
		Logging: LoggingConfig{
			Env:   "dev",
			Level: "info",
		},
	}
}

// Validate checks matching thresholds and bounds
func (c MatchingConfig) Validate() error {
	for name, v := range map[string]float64{
		"semantic_threshold":  c.SemanticThreshold,
		"entity_threshold":    c.EntityThreshold,
		"rule_threshold":      c.RuleThreshold,
		"keyword_threshold":   c.KeywordThreshold,
		"entity_min_coverage": c.EntityMinCoverage,
		"rule_confidence":     c.RuleConfidence,
		"keyword_gate":        c.KeywordGate,
	} {
		if v < 0 || v > 1 {
			return eris.Errorf("matching.%s must be within [0,1], got %v", name, v)
		}
	}
	if c.SectionBoost < 1 {
		return eris.Errorf("matching.section_boost must be >= 1, got %v", c.SectionBoost)
	}
	if c.MinValueLength < 0 || c.MaxValueLength <= c.MinValueLength {
		return eris.Errorf("matching value length bounds invalid: (%d, %d)", c.MinValueLength, c.MaxValueLength)
	}
	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Matching.Validate(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return eris.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver)
	}
	return nil
}
