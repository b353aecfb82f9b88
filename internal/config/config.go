package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
)

// Config holds the entrysearch server configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	ContentSource ContentSourceConfig `yaml:"content_source"`
	Search        SearchConfig        `yaml:"search"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ContentSourceConfig holds the remote entry-query service settings.
type ContentSourceConfig struct {
	Endpoint   string            `yaml:"endpoint"`
	TimeoutSec int               `yaml:"timeout_sec"`
	Headers    map[string]string `yaml:"headers"`
}

// SearchConfig holds session defaults.
type SearchConfig struct {
	WaitMs   int            `yaml:"wait_ms"`
	PageSize query.PageSize `yaml:"page_size"` // integer or numeric string
	Locale   string         `yaml:"locale"`
	Filters  []filter.Block `yaml:"filters"`
}

// Wait returns the debounce window.
func (c SearchConfig) Wait() time.Duration {
	return time.Duration(c.WaitMs) * time.Millisecond
}

// CacheConfig holds response cache settings. The cache is disabled when Addrs is empty.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache store is configured.
func (c CacheConfig) Enabled() bool {
	return len(c.Addrs) > 0
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.ContentSource.TimeoutSec <= 0 {
		c.ContentSource.TimeoutSec = 10
	}
	if c.Search.WaitMs <= 0 {
		c.Search.WaitMs = int(domain.DefaultWait / time.Millisecond)
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = domain.DefaultPageSize
	}
	if c.Search.Locale == "" {
		c.Search.Locale = domain.DefaultLocale
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.ContentSource.Endpoint == "" {
		return fmt.Errorf("content_source.endpoint is required")
	}
	u, err := url.Parse(c.ContentSource.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("content_source.endpoint must be an absolute http(s) URL, got %q", c.ContentSource.Endpoint)
	}
	for i, b := range c.Search.Filters {
		if b.Key == "" {
			return fmt.Errorf("search.filters[%d].key is required", i)
		}
		if b.Operator == "" {
			return fmt.Errorf("search.filters[%d].operator is required", i)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
