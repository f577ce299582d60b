package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete agent configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the local UI API server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds the durable local store configuration
type DatabaseConfig struct {
	Type         string        `mapstructure:"type"` // sqlite, postgres
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Path         string        `mapstructure:"path"` // For SQLite
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// UpstreamConfig holds the central office server connection configuration
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AgentToken     string        `mapstructure:"agent_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SyncConfig holds the background sync engine configuration
type SyncConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	ConnectivityProbe  time.Duration `mapstructure:"connectivity_probe"`
	StatusPollInterval time.Duration `mapstructure:"status_poll_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Set default values
	setDefaults()

	// Set config file path
	viper.SetConfigFile(configPath)

	// Allow environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("TALLY")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults and env vars
			fmt.Printf("Warning: Config file not found at %s, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	// Override with environment variables
	overrideWithEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %v", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.path", "./tally-agent.db")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.max_lifetime", "5m")

	// Upstream defaults
	viper.SetDefault("upstream.base_url", "http://localhost:3000")
	viper.SetDefault("upstream.request_timeout", "15s")

	// Sync defaults
	viper.SetDefault("sync.interval", "30s")
	viper.SetDefault("sync.connectivity_probe", "10s")
	viper.SetDefault("sync.status_poll_interval", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "./logs/agent.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)
}

// overrideWithEnvVars overrides config with specific environment variables
func overrideWithEnvVars() {
	// Critical environment variables that should always override config
	envMappings := map[string]string{
		"UPSTREAM_URL": "upstream.base_url",
		"AGENT_TOKEN":  "upstream.agent_token",
		"DB_PATH":      "database.path",
		"DB_PASSWORD":  "database.password",
		"DB_USER":      "database.user",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			viper.Set(configKey, value)
		}
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required")
	}

	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	// Validate database configuration
	if config.Database.Type == "postgres" {
		if config.Database.Host == "" || config.Database.User == "" {
			return fmt.Errorf("postgres requires host and user")
		}
	} else if config.Database.Type == "sqlite" {
		if config.Database.Path == "" {
			return fmt.Errorf("sqlite requires path")
		}
	}

	// An unbounded transmission timeout would starve the sweep lock
	if config.Upstream.RequestTimeout <= 0 {
		config.Upstream.RequestTimeout = 15 * time.Second
	}

	if config.Sync.Interval <= 0 {
		config.Sync.Interval = 30 * time.Second
	}

	return nil
}

// GetServerAddress returns the full local API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug" || c.Server.Mode == "development"
}

// SanitizeForLogging returns a copy of the config with sensitive data redacted
func (c *Config) SanitizeForLogging() *Config {
	sanitized := *c

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = "[REDACTED]"
	}

	if sanitized.Upstream.AgentToken != "" {
		sanitized.Upstream.AgentToken = "[REDACTED]"
	}

	return &sanitized
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// LoadConfigFromEnv loads configuration primarily from environment variables
func LoadConfigFromEnv() (*Config, error) {
	config := &Config{}

	config.Server.Host = getEnvOrDefault("SERVER_HOST", "127.0.0.1")
	config.Server.Port = getEnvOrDefault("SERVER_PORT", "8080")
	config.Server.Mode = getEnvOrDefault("GIN_MODE", "release")

	config.Database.Type = getEnvOrDefault("DB_TYPE", "sqlite")
	config.Database.Path = getEnvOrDefault("DB_PATH", "./tally-agent.db")
	config.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	config.Database.Port = getEnvInt("DB_PORT", 5432)
	config.Database.User = getEnvOrDefault("DB_USER", "")
	config.Database.Password = os.Getenv("DB_PASSWORD")
	config.Database.DBName = getEnvOrDefault("DB_NAME", "tally_agent")

	config.Upstream.BaseURL = getEnvOrDefault("UPSTREAM_URL", "http://localhost:3000")
	config.Upstream.AgentToken = os.Getenv("AGENT_TOKEN")
	config.Upstream.RequestTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second)

	config.Sync.Interval = getEnvDuration("SYNC_INTERVAL", 30*time.Second)
	config.Sync.ConnectivityProbe = getEnvDuration("CONNECTIVITY_PROBE", 10*time.Second)
	config.Sync.StatusPollInterval = getEnvDuration("STATUS_POLL_INTERVAL", 5*time.Second)

	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	config.Logging.Format = getEnvOrDefault("LOG_FORMAT", "text")
	config.Logging.File = getEnvOrDefault("LOG_FILE", "./logs/agent.log")

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
