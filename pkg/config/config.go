package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is where Load looks for the YAML file when no path is given.
const DefaultPath = "config.yaml"

// Supported database types.
const (
	DatabasePostgres = "postgres"
	DatabaseMSSQL    = "mssql"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for ekaya-ask.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Database being questioned
	Database DatabaseConfig `yaml:"database"`

	// Completion service used for SQL generation and answer formatting
	LLM LLMConfig `yaml:"llm"`

	// Pipeline limits and formatting
	Pipeline PipelineConfig `yaml:"pipeline"`

	// MCP endpoint
	MCP MCPConfig `yaml:"mcp"`
}

// DatabaseConfig holds connection settings for the questioned database.
type DatabaseConfig struct {
	Type           string `yaml:"type" env:"DB_TYPE" env-default:"postgres"` // postgres | mssql
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	Provider       string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"` // openai | anthropic
	BaseURL        string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`       // OpenAI-compatible endpoints only
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	MaxTokens      int    `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
	MaxRetries     int    `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
}

// IsAvailable returns true if a completion service credential is configured.
func (c *LLMConfig) IsAvailable() bool {
	return c.APIKey != ""
}

// PipelineConfig holds per-question limits.
type PipelineConfig struct {
	MaxRows           int      `yaml:"max_rows" env:"PIPELINE_MAX_ROWS" env-default:"1000"`
	DisplaySampleRows int      `yaml:"display_sample_rows" env:"PIPELINE_DISPLAY_SAMPLE_ROWS" env-default:"10"`
	StatsSampleRows   int      `yaml:"stats_sample_rows" env:"PIPELINE_STATS_SAMPLE_ROWS" env-default:"100"`
	CurrencyHints     []string `yaml:"currency_hints" env:"PIPELINE_CURRENCY_HINTS" env-separator:"," env-default:"price,amount,total,cost,revenue,sales,precio,monto,costo,valor,venta,ingreso,importe,subtotal,saldo,pago"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from the YAML file at path (DefaultPath if empty)
// with environment variable overrides. A missing file is not an error: the
// configuration then comes from environment variables and defaults alone.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks enumerations and limits that cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case DatabasePostgres, DatabaseMSSQL:
	default:
		return fmt.Errorf("database.type must be postgres or mssql, got %q", c.Database.Type)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}
	if c.Pipeline.MaxRows < 1 {
		return fmt.Errorf("pipeline.max_rows must be at least 1")
	}
	if c.Pipeline.DisplaySampleRows < 1 || c.Pipeline.StatsSampleRows < 1 {
		return fmt.Errorf("pipeline sample sizes must be at least 1")
	}

	c.Pipeline.CurrencyHints = normalizeHints(c.Pipeline.CurrencyHints)
	return nil
}

// normalizeHints trims, lower-cases and drops empty currency hints.
func normalizeHints(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection URL. User-provided fields
// are escaped so passwords may contain @, /, # or spaces.
func (c *DatabaseConfig) ConnectionString() string {
	query := url.Values{}
	if c.SSLMode != "" {
		query.Set("sslmode", c.SSLMode)
	}

	u := &url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// SQLServerURL returns a go-mssqldb connection URL.
func (c *DatabaseConfig) SQLServerURL() string {
	query := url.Values{}
	query.Set("database", c.Database)
	if c.SSLMode == "disable" {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
