package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querypilot-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Generation and embedding model endpoints
	LLM LLMConfig `yaml:"llm"`

	// Vector store database (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Warehouse execution settings
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Retrieval defaults
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// LLMConfig holds generation-model client configuration.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	EmbeddingModel string `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	// TimeoutSeconds bounds a single generation call. The pipeline treats
	// expiry as a generation failure rather than hanging the request.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
	// Temperature for SQL generation. Low by default: we want deterministic SQL.
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
}

// Timeout returns the generation timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig holds the PostgreSQL vector store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"querypilot"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"querypilot"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// WarehouseConfig holds query execution settings for the warehouse engine.
type WarehouseConfig struct {
	// URL is the warehouse connection string. Secret because it may embed
	// credentials.
	URL string `yaml:"-" env:"WAREHOUSE_URL"`

	// MaxBytesBilled is the default billing ceiling applied when a caller
	// does not supply one. Zero means no ceiling.
	MaxBytesBilled int64 `yaml:"max_bytes_billed" env:"WAREHOUSE_MAX_BYTES_BILLED" env-default:"1073741824"`

	// QueryTimeoutSeconds bounds a single query execution.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"WAREHOUSE_QUERY_TIMEOUT_SECONDS" env-default:"30"`

	// AllowedDatasetsStr is a comma-separated list of dataset scopes that
	// generated SQL may reference (e.g. "analytics,sales.public"). Empty
	// disables the dataset-scope validation rule.
	AllowedDatasetsStr string `yaml:"allowed_datasets" env:"WAREHOUSE_ALLOWED_DATASETS" env-default:""`

	// AllowedDatasets is parsed from AllowedDatasetsStr (not from config file).
	AllowedDatasets []string `yaml:"-"`

	// MaxRows caps row counts returned from any execution.
	MaxRows int `yaml:"max_rows" env:"WAREHOUSE_MAX_ROWS" env-default:"1000"`
}

// QueryTimeout returns the execution timeout as a duration.
func (c *WarehouseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// RetrievalConfig holds retrieval defaults for the query pipeline.
type RetrievalConfig struct {
	// TopK is the default number of similar historical queries retrieved.
	TopK int `yaml:"top_k" env:"RETRIEVAL_TOP_K" env-default:"5"`
	// SchemaInjection toggles schema context injection into prompts.
	SchemaInjection bool `yaml:"schema_injection" env:"RETRIEVAL_SCHEMA_INJECTION" env-default:"true"`
	// SQLValidation toggles safety validation of extracted SQL.
	SQLValidation bool `yaml:"sql_validation" env:"RETRIEVAL_SQL_VALIDATION" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Warehouse.AllowedDatasets = parseDatasetList(c.Warehouse.AllowedDatasetsStr)
	return nil
}

// validate checks cross-field constraints that cleanenv tags cannot express.
func (c *Config) validate() error {
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	if c.Warehouse.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("warehouse.query_timeout_seconds must be positive, got %d", c.Warehouse.QueryTimeoutSeconds)
	}
	if c.Warehouse.MaxBytesBilled < 0 {
		return fmt.Errorf("warehouse.max_bytes_billed must not be negative, got %d", c.Warehouse.MaxBytesBilled)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

// parseDatasetList parses a comma-separated dataset scope list.
func parseDatasetList(value string) []string {
	if value == "" {
		return nil
	}

	var datasets []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			datasets = append(datasets, part)
		}
	}
	return datasets
}
