package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IMGHARVEST"

// DefaultKeywords are searched when no keywords are configured
var DefaultKeywords = []string{
	"multimeter",
	"oscilloscope",
	"function generator",
	"dc power supply",
}

// Config holds all configuration options for the harvester
type Config struct {
	// Search provider settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metadata store settings
	Metadata MetadataConfig `yaml:"metadata" json:"metadata"`

	// Metrics output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig holds query stage configuration
type SearchConfig struct {
	Provider       string        `yaml:"provider" json:"provider"`
	Keywords       []string      `yaml:"keywords" json:"keywords"`
	PerKeyword     int           `yaml:"per_keyword" json:"per_keyword"`
	Locale         string        `yaml:"locale" json:"locale"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
	DuckDuckGoURL  string        `yaml:"duckduckgo_url" json:"duckduckgo_url"`
	BingURL        string        `yaml:"bing_url" json:"bing_url"`
}

// DownloadConfig holds fetch stage configuration
type DownloadConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	RetryEnabled   bool          `yaml:"retry_enabled" json:"retry_enabled"`
	RetryAttempts  int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	RespectRobots  bool          `yaml:"respect_robots" json:"respect_robots"`
	MinFileSize    int64         `yaml:"min_file_size" json:"min_file_size"`
	MaxFileSize    int64         `yaml:"max_file_size" json:"max_file_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// MetadataConfig holds metadata stage configuration
type MetadataConfig struct {
	Enabled bool        `yaml:"enabled" json:"enabled"`
	Store   StoreConfig `yaml:"store" json:"store"`
}

// StoreConfig holds the connection parameters of the metadata store.
// Every field can be overridden by an IMGHARVEST_DB_* environment variable.
type StoreConfig struct {
	Driver   string `yaml:"driver" json:"driver" envconfig:"DB_DRIVER"`
	Host     string `yaml:"host" json:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" json:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" json:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" json:"-" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" json:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" json:"sslmode" envconfig:"DB_SSLMODE"`
	Path     string `yaml:"path" json:"path" envconfig:"DB_PATH"`
	// SidecarDir receives <image>.json files, never the output directory
	SidecarDir string `yaml:"sidecar_dir" json:"sidecar_dir" envconfig:"DB_SIDECAR_DIR"`
	// Timeout bounds each insert including connecting
	Timeout time.Duration `yaml:"timeout" json:"timeout" envconfig:"DB_TIMEOUT"`
}

// MetricsConfig holds metrics output configuration
type MetricsConfig struct {
	File string `yaml:"file" json:"file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DSN builds the PostgreSQL connection URL. Credentials and database name
// are escaped, so empty values and spaces survive parsing.
func (s StoreConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   "/" + s.Name,
	}
	if s.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {s.SSLMode}}.Encode()
	}
	return u.String()
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:       "duckduckgo",
			Keywords:       append([]string(nil), DefaultKeywords...),
			PerKeyword:     20,
			Locale:         "us-en",
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0 Safari/537.36",
			RequestTimeout: 15 * time.Second,
			PageDelay:      300 * time.Millisecond,
			DuckDuckGoURL:  "https://duckduckgo.com",
			BingURL:        "https://www.bing.com",
		},
		Download: DownloadConfig{
			Timeout:        12 * time.Second,
			RetryEnabled:   true,
			RetryAttempts:  3,
			RetryBaseDelay: 1 * time.Second,
			Delay:          150 * time.Millisecond,
			RespectRobots:  false,
			MinFileSize:    0,
			MaxFileSize:    0, // 0 means no limit
		},
		Output: OutputConfig{
			Directory: "imagenes",
		},
		Metadata: MetadataConfig{
			Enabled: false,
			Store: StoreConfig{
				Driver:     "postgres",
				Host:       "localhost",
				Port:       5432,
				User:       "postgres",
				Name:       "imagenes",
				SSLMode:    "disable",
				Path:       "imagenes.db",
				SidecarDir: "imagenes-metadata",
				Timeout:    5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if provider := os.Getenv(envPrefix + "_PROVIDER"); provider != "" {
		c.Search.Provider = provider
	}
	if keywords := os.Getenv(envPrefix + "_KEYWORDS"); keywords != "" {
		c.Search.Keywords = splitList(keywords)
	}
	if per := os.Getenv(envPrefix + "_PER_KEYWORD"); per != "" {
		val, err := strconv.Atoi(per)
		if err != nil {
			return fmt.Errorf("invalid %s_PER_KEYWORD: %w", envPrefix, err)
		}
		c.Search.PerKeyword = val
	}
	if outputDir := os.Getenv(envPrefix + "_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if enabled := os.Getenv(envPrefix + "_METADATA_ENABLED"); enabled != "" {
		c.Metadata.Enabled = strings.ToLower(enabled) == "true"
	}
	if logLevel := os.Getenv(envPrefix + "_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	// Unset variables leave the file and default values untouched
	if err := envconfig.Process(envPrefix, &c.Metadata.Store); err != nil {
		return fmt.Errorf("failed to read store environment: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	validProviders := map[string]bool{"duckduckgo": true, "bing": true}
	if !validProviders[strings.ToLower(c.Search.Provider)] {
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}
	if len(c.Search.Keywords) == 0 {
		errs = append(errs, errors.New("at least one keyword is required"))
	}
	if c.Search.PerKeyword <= 0 {
		errs = append(errs, errors.New("per-keyword count must be positive"))
	}
	if c.Search.RequestTimeout <= 0 {
		errs = append(errs, errors.New("search request timeout must be positive"))
	}
	if c.Search.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryEnabled && c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Download.RetryBaseDelay < 0 || c.Download.Delay < 0 {
		errs = append(errs, errors.New("download delays cannot be negative"))
	}
	if c.Download.MaxFileSize > 0 && c.Download.MaxFileSize < c.Download.MinFileSize {
		errs = append(errs, errors.New("max file size must not be below min file size"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Metadata.Enabled {
		if c.Metadata.Store.Timeout <= 0 {
			errs = append(errs, errors.New("store timeout must be positive"))
		}
		switch strings.ToLower(c.Metadata.Store.Driver) {
		case "postgres":
			if c.Metadata.Store.Host == "" || c.Metadata.Store.Name == "" {
				errs = append(errs, errors.New("postgres store needs host and database name"))
			}
		case "sqlite":
			if c.Metadata.Store.Path == "" {
				errs = append(errs, errors.New("sqlite store needs a path"))
			}
		case "sidecar":
			if c.Metadata.Store.SidecarDir == "" {
				errs = append(errs, errors.New("sidecar store needs a directory"))
			} else if filepath.Clean(c.Metadata.Store.SidecarDir) == filepath.Clean(c.Output.Directory) {
				errs = append(errs, errors.New("sidecar directory must differ from the output directory"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown store driver %q", c.Metadata.Store.Driver))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Search.Keywords = keywords
	}
	if per, ok := flags["per-keyword"].(int); ok {
		c.Search.PerKeyword = per
	}
	if provider, ok := flags["provider"].(string); ok && provider != "" {
		c.Search.Provider = provider
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if noRetry, ok := flags["no-retry"].(bool); ok && noRetry {
		c.Download.RetryEnabled = false
	}
	if robots, ok := flags["respect-robots"].(bool); ok {
		c.Download.RespectRobots = robots
	}
	if enabled, ok := flags["metadata"].(bool); ok {
		c.Metadata.Enabled = enabled
	}
	if driver, ok := flags["store"].(string); ok && driver != "" {
		c.Metadata.Store.Driver = driver
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Metrics.File = metricsFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// RetryAttempts returns the effective attempt bound for the fetch stage
func (c *Config) RetryAttempts() int {
	if !c.Download.RetryEnabled {
		return 1
	}
	return c.Download.RetryAttempts
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
