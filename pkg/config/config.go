package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for datalens-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (the analytical dataset being queried)
	Database DatabaseConfig `yaml:"database"`

	// AI completion gateway configuration
	AI AIConfig `yaml:"ai"`

	// Pipeline behavior configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Query-result cache configuration
	Cache CacheConfig `yaml:"cache"`
}

// DatabaseConfig holds PostgreSQL configuration for the target dataset.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"datalens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"commerce"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AIConfig holds the completion gateway settings.
// Provider selects the backing SDK: "openai" (any OpenAI-compatible
// endpoint) or "anthropic".
type AIConfig struct {
	Provider  string        `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint  string        `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model     string        `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey    string        `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	TimeoutS  int           `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS" env-default:"60"`
	MaxTokens int           `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"2000"`
	Timeout   time.Duration `yaml:"-"` // Derived from TimeoutS at load time
}

// PipelineConfig holds NL2SQL pipeline behavior settings.
type PipelineConfig struct {
	// MaxRetries bounds regeneration attempts after the first try.
	MaxRetries int `yaml:"max_retries" env:"PIPELINE_MAX_RETRIES" env-default:"2"`
	// RetryDelayMs is the fixed wait between generation attempts.
	RetryDelayMs int `yaml:"retry_delay_ms" env:"PIPELINE_RETRY_DELAY_MS" env-default:"1500"`
	// RowCap is the hard cap on rows returned to the caller.
	RowCap int `yaml:"row_cap" env:"PIPELINE_ROW_CAP" env-default:"100"`
	// NeedExplanation controls whether the explainer calls the gateway.
	NeedExplanation bool `yaml:"need_explanation" env:"PIPELINE_NEED_EXPLANATION" env-default:"true"`
	// DenyKeywordsStr is a comma-separated override for the SQL deny-list.
	DenyKeywordsStr string `yaml:"deny_keywords" env:"PIPELINE_DENY_KEYWORDS" env-default:""`

	// DenyKeywords is the parsed list from DenyKeywordsStr (not from config file).
	DenyKeywords []string `yaml:"-"`

	// RetryDelay is derived from RetryDelayMs at load time.
	RetryDelay time.Duration `yaml:"-"`
}

// CacheConfig holds query-result cache settings.
type CacheConfig struct {
	TTLMinutes int           `yaml:"ttl_minutes" env:"CACHE_TTL_MINUTES" env-default:"30"`
	TTL        time.Duration `yaml:"-"` // Derived from TTLMinutes at load time
}

// Load reads configuration from config.yaml with environment variable overrides.
// If config.yaml does not exist, configuration comes from the environment alone.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.parseComplexFields()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.AI.Timeout = time.Duration(c.AI.TimeoutS) * time.Second
	c.Pipeline.RetryDelay = time.Duration(c.Pipeline.RetryDelayMs) * time.Millisecond
	c.Cache.TTL = time.Duration(c.Cache.TTLMinutes) * time.Minute
	c.Pipeline.DenyKeywords = parseDenyKeywords(c.Pipeline.DenyKeywordsStr)
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline max_retries must be >= 0, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.RowCap <= 0 {
		return fmt.Errorf("pipeline row_cap must be > 0, got %d", c.Pipeline.RowCap)
	}
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	return nil
}

// parseDenyKeywords splits the comma-separated override list, upper-casing
// each entry. An empty string yields nil, which means "use defaults".
func parseDenyKeywords(value string) []string {
	if value == "" {
		return nil
	}

	var keywords []string
	for _, kw := range strings.Split(value, ",") {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
