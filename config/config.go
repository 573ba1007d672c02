package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Search  SearchConfig  `mapstructure:"search"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimitPerIP int      `mapstructure:"rate_limit_per_ip"` // requests per minute
}

// SearchConfig holds web search API configuration
type SearchConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	EngineID           string        `mapstructure:"engine_id"`
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Num                int           `mapstructure:"num"`
	QueryMode          string        `mapstructure:"query_mode"` // "intent" or "exclude"
	ExcludedSites      []string      `mapstructure:"excluded_sites"`
	RequireCredentials bool          `mapstructure:"require_credentials"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
}

// FetchConfig holds candidate page fetch configuration
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// EnrichConfig holds the per-product aggregation policy
type EnrichConfig struct {
	MaxSites        int           `mapstructure:"max_sites"`
	OverFetchFactor int           `mapstructure:"overfetch_factor"`
	FetchDelay      time.Duration `mapstructure:"fetch_delay"`
	ProductDelay    time.Duration `mapstructure:"product_delay"`
	Workers         int           `mapstructure:"workers"`
	AbortOnQuota    bool          `mapstructure:"abort_on_quota"`
}

// FilterConfig holds the relevance filter host lists
type FilterConfig struct {
	Blocklist []string `mapstructure:"blocklist"`
	Allowlist []string `mapstructure:"allowlist"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory", "bolt" or "none"
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// CatalogConfig holds default catalog file paths
type CatalogConfig struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// HasCredentials reports whether both search credentials are present
func (c SearchConfig) HasCredentials() bool {
	return c.APIKey != "" && c.EngineID != ""
}

// MaskedAPIKey returns the API key with all but the first four characters hidden
func (c SearchConfig) MaskedAPIKey() string {
	if c.APIKey == "" {
		return "(not set)"
	}
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return c.APIKey[:4] + strings.Repeat("*", len(c.APIKey)-4)
}

// Load loads configuration from .env, config file and environment variables
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.rate_limit_per_ip", 30)

	// Search defaults
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.num", 10)
	v.SetDefault("search.query_mode", "intent")
	v.SetDefault("search.excluded_sites", []string{"sinetecirurgica.com.br"})
	v.SetDefault("search.require_credentials", true)
	v.SetDefault("search.requests_per_second", 1.0)

	// Fetch defaults
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0")
	v.SetDefault("fetch.max_body_bytes", 5*1024*1024)

	// Enrichment defaults
	v.SetDefault("enrich.max_sites", 3)
	v.SetDefault("enrich.overfetch_factor", 2)
	v.SetDefault("enrich.fetch_delay", "500ms")
	v.SetDefault("enrich.product_delay", "1s")
	v.SetDefault("enrich.workers", 1)
	v.SetDefault("enrich.abort_on_quota", false)

	// Relevance filter defaults
	v.SetDefault("filter.blocklist", []string{"wikipedia", "instagram", "facebook", "youtube", "linkedin", "reclameaqui"})
	v.SetDefault("filter.allowlist", []string{"amazon", "mercadolivre", "shopee", "magazine", "carrefour", "walmart", "extra"})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.path", "data/search-cache.db")
	v.SetDefault("cache.ttl", "24h")

	// Catalog defaults
	v.SetDefault("catalog.input", "lab/produto.json")
	v.SetDefault("catalog.output", "lab/produtos_com_precos.json")

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Search.RequireCredentials && !config.Search.HasCredentials() {
		return fmt.Errorf("search API key and engine ID are required (set PRICELENS_SEARCH_API_KEY and PRICELENS_SEARCH_ENGINE_ID)")
	}

	if config.Search.QueryMode != "intent" && config.Search.QueryMode != "exclude" {
		return fmt.Errorf("search query mode must be 'intent' or 'exclude', got: %s", config.Search.QueryMode)
	}

	if config.Enrich.MaxSites < 1 {
		return fmt.Errorf("enrich max sites must be at least 1, got: %d", config.Enrich.MaxSites)
	}

	if config.Enrich.OverFetchFactor < 1 {
		return fmt.Errorf("enrich overfetch factor must be at least 1, got: %d", config.Enrich.OverFetchFactor)
	}

	switch config.Cache.Type {
	case "memory", "none":
	case "bolt":
		if config.Cache.Path == "" {
			return fmt.Errorf("cache path is required when cache type is 'bolt'")
		}
	default:
		return fmt.Errorf("cache type must be 'memory', 'bolt' or 'none', got: %s", config.Cache.Type)
	}

	return nil
}
