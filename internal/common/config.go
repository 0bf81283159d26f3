package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/margin/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Environment string                `toml:"environment"` // "development" or "production"
	Server      ServerConfig          `toml:"server"`
	Tushare     TushareConfig         `toml:"tushare"`
	Storage     StorageConfig         `toml:"storage"`
	Logging     LoggingConfig         `toml:"logging"`
	Scheduler   SchedulerConfig       `toml:"scheduler"`
	Screener    ScreenerConfig        `toml:"screener"`
	Graham      analysis.GrahamConfig `toml:"graham"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// TushareConfig holds the market-data provider settings
type TushareConfig struct {
	Token          string        `toml:"token"`           // Tushare Pro API token
	BaseURL        string        `toml:"base_url"`        // API endpoint
	RateLimit      int           `toml:"rate_limit"`      // Max requests per minute
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	MaxRetries     int           `toml:"max_retries"`     // Retry attempts for transient failures
	RetryDelay     time.Duration `toml:"retry_delay"`     // Base delay, scaled linearly per attempt
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// SchedulerConfig controls the periodic full-market screen
type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	Schedule        string `toml:"schedule"`          // Cron schedule format
	TradingDaysOnly bool   `toml:"trading_days_only"` // Skip runs on weekends
}

// ScreenerConfig controls the batch screening service
type ScreenerConfig struct {
	Concurrency  int    `toml:"concurrency"`   // Concurrent per-stock analysis workers
	UniverseFile string `toml:"universe_file"` // Optional YAML file restricting the stock universe
	TopN         int    `toml:"top_n"`         // Default size for ranked result queries
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in margin.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Tushare: TushareConfig{
			Token:          "", // User must provide token (TUSHARE_TOKEN or config)
			BaseURL:        "http://api.tushare.pro",
			RateLimit:      200, // Tushare Pro free tier allows 200 calls per minute
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			RetryDelay:     1 * time.Second,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Scheduler: SchedulerConfig{
			Enabled:         false,             // Disabled by default - user must explicitly opt-in
			Schedule:        "0 30 15 * * 1-5", // Weekdays at 15:30, after market close
			TradingDaysOnly: true,
		},
		Screener: ScreenerConfig{
			Concurrency:  10,
			UniverseFile: "",
			TopN:         50,
		},
		Graham: analysis.DefaultGrahamConfig(),
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: MARGIN_ENV, fallback: GO_ENV)
	if env := os.Getenv("MARGIN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MARGIN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARGIN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Tushare configuration
	if token := os.Getenv("TUSHARE_TOKEN"); token != "" {
		config.Tushare.Token = token
	}
	if token := os.Getenv("MARGIN_TUSHARE_TOKEN"); token != "" {
		config.Tushare.Token = token // MARGIN_ prefix takes priority
	}
	if baseURL := os.Getenv("MARGIN_TUSHARE_BASE_URL"); baseURL != "" {
		config.Tushare.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("MARGIN_TUSHARE_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Tushare.RateLimit = rl
		}
	}
	if timeout := os.Getenv("MARGIN_TUSHARE_REQUEST_TIMEOUT"); timeout != "" {
		if rt, err := time.ParseDuration(timeout); err == nil {
			config.Tushare.RequestTimeout = rt
		}
	}
	if maxRetries := os.Getenv("MARGIN_TUSHARE_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Tushare.MaxRetries = mr
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("MARGIN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MARGIN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MARGIN_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("MARGIN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("MARGIN_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("MARGIN_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Screener configuration
	if concurrency := os.Getenv("MARGIN_SCREENER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Screener.Concurrency = c
		}
	}
	if universeFile := os.Getenv("MARGIN_SCREENER_UNIVERSE_FILE"); universeFile != "" {
		config.Screener.UniverseFile = universeFile
	}
	if topN := os.Getenv("MARGIN_SCREENER_TOP_N"); topN != "" {
		if n, err := strconv.Atoi(topN); err == nil && n > 0 {
			config.Screener.TopN = n
		}
	}

	// Graham engine configuration
	if bondYield := os.Getenv("MARGIN_GRAHAM_AAA_BOND_YIELD"); bondYield != "" {
		if y, err := strconv.ParseFloat(bondYield, 64); err == nil {
			config.Graham.AAABondYield = y
		}
	}
	if model := os.Getenv("MARGIN_GRAHAM_VALUATION_MODEL"); model != "" {
		config.Graham.ValuationModel = model
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration for startup-fatal errors
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Tushare.RateLimit <= 0 {
		return fmt.Errorf("tushare rate_limit must be positive, got %d", c.Tushare.RateLimit)
	}
	if c.Screener.Concurrency <= 0 {
		return fmt.Errorf("screener concurrency must be positive, got %d", c.Screener.Concurrency)
	}
	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}
	if err := c.Graham.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateSchedule validates a cron schedule expression with a seconds field
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
