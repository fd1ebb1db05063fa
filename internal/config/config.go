package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL string `mapstructure:"base_url"` // Base URL for generating short links
	} `mapstructure:"server"`

	// Registry configuration for the in-memory link collection
	Registry struct {
		MaxLinks   int `mapstructure:"max_links"`   // Concurrent-link cap (default: 5)
		CodeLength int `mapstructure:"code_length"` // Length of generated short codes
	} `mapstructure:"registry"`

	// Database configuration for the SQLite click archive
	Database struct {
		DSN string `mapstructure:"dsn"` // SQLite DSN; defaults to an in-memory database
	} `mapstructure:"database"`

	// Analytics configuration for asynchronous click tracking
	Analytics struct {
		BufferSize  int `mapstructure:"buffer_size"`  // Size of the click event channel buffer
		WorkerCount int `mapstructure:"worker_count"` // Number of worker goroutines for processing clicks
	} `mapstructure:"analytics"`

	// Monitor configuration for URL health checking
	Monitor struct {
		IntervalMinutes int  `mapstructure:"interval_minutes"` // Interval in minutes between URL health checks
		Enabled         bool `mapstructure:"enabled"`          // Whether the monitor runs at all
	} `mapstructure:"monitor"`

	// RateLimit configuration for the per-IP limiter on the HTTP API
	RateLimit struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second"` // Sustained request rate per client IP
		Burst             int     `mapstructure:"burst"`               // Burst size per client IP
	} `mapstructure:"ratelimit"`

	// App configuration for environment and logging
	App struct {
		Env      string `mapstructure:"env"`       // "production" switches logs to JSON
		LogLevel string `mapstructure:"log_level"` // debug, info, warn or error
	} `mapstructure:"app"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	// Enable automatic environment variable binding
	// This allows config values to be overridden via environment variables
	viper.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	// e.g., "server.port" becomes "SERVER_PORT"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Specify the directory path where Viper should look for config files
	viper.AddConfigPath("./configs")

	// Specify the name of the config file (without the extension)
	viper.SetConfigName("config")

	// Specify the type/format of the config file (YAML in this case)
	viper.SetConfigType("yaml")

	// Set default values for all configuration options
	// These will be used if no config file is found or if specific keys are missing
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("registry.max_links", 5)
	viper.SetDefault("registry.code_length", 6)
	// The archive lives and dies with the process: the registry is the
	// in-memory source of truth, so the default DSN is an in-memory SQLite
	// database shared across connections.
	viper.SetDefault("database.dsn", "file::memory:?cache=shared")
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("monitor.interval_minutes", 5)
	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("ratelimit.requests_per_second", 5)
	viper.SetDefault("ratelimit.burst", 10)
	viper.SetDefault("app.env", "local")
	viper.SetDefault("app.log_level", "info")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		// Check if the error is specifically "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// This is not a fatal error - we'll use default values
			log.Println("Config file not found, using default values")
		} else {
			// Any other error (permissions, malformed YAML, etc.) is fatal
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the loaded configuration into our Config structure
	// This converts the Viper configuration into our strongly-typed struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
