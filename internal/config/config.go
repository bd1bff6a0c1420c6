package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Review   ReviewConfig   `mapstructure:"review"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// FeedConfig holds upstream match feed configuration
type FeedConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	LeagueIDs           []string      `mapstructure:"league_ids"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryDelayBase      time.Duration `mapstructure:"retry_delay_base"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	MockFallback        bool          `mapstructure:"mock_fallback"` // serve sample matches when upstream is empty
}

// ReviewConfig holds review engine configuration
type ReviewConfig struct {
	Workers int `mapstructure:"workers"`
}

// ScheduleConfig holds review cycle scheduling configuration
type ScheduleConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Cron         string        `mapstructure:"cron"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	Cooldown     time.Duration `mapstructure:"cooldown"` // minimum gap before re-notifying the same tip
	MaxNotify    int           `mapstructure:"max_notify"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds review archive configuration
type StorageConfig struct {
	MaxReviews int    `mapstructure:"max_reviews"`
	DBPath     string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a .env file, the config file and environment variables.
// Environment variables use the ODDSAUDIT_ prefix with dots replaced by underscores,
// e.g. ODDSAUDIT_TELEGRAM_BOT_TOKEN.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("ODDSAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("feed.base_url", "http://localhost:3000/api")
	v.SetDefault("feed.league_ids", []string{"premier-league"})
	v.SetDefault("feed.timeout", "15s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")
	v.SetDefault("feed.max_idle_conns", 100)
	v.SetDefault("feed.max_idle_conns_per_host", 10)
	v.SetDefault("feed.idle_conn_timeout", "90s")
	v.SetDefault("feed.mock_fallback", false)

	v.SetDefault("review.workers", 4)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.cron", "@every 5m")
	v.SetDefault("schedule.cycle_timeout", "2m")
	v.SetDefault("schedule.cooldown", "6h")
	v.SetDefault("schedule.max_notify", 10)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.max_reviews", 5000)
	v.SetDefault("storage.db_path", "./data/oddsaudit.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Enabled {
		if c.Server.Addr == "" {
			return fmt.Errorf("server.addr is required when the server is enabled")
		}
		if c.Server.RequestTimeout <= 0 {
			return fmt.Errorf("server.request_timeout must be positive")
		}
		if c.Server.MaxBodyBytes < 1024 {
			return fmt.Errorf("server.max_body_bytes must be at least 1024")
		}
	}

	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if len(c.Feed.LeagueIDs) == 0 {
		return fmt.Errorf("feed.league_ids must contain at least one league")
	}
	if c.Feed.Timeout < time.Second {
		return fmt.Errorf("feed.timeout must be at least 1 second")
	}
	if c.Feed.MaxRetries < 1 {
		return fmt.Errorf("feed.max_retries must be at least 1")
	}

	if c.Review.Workers < 1 || c.Review.Workers > 256 {
		return fmt.Errorf("review.workers must be between 1 and 256")
	}

	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron is invalid: %w", err)
		}
		if c.Schedule.CycleTimeout < time.Second {
			return fmt.Errorf("schedule.cycle_timeout must be at least 1 second")
		}
	}
	if c.Schedule.Cooldown < 0 {
		return fmt.Errorf("schedule.cooldown must not be negative")
	}
	if c.Schedule.MaxNotify < 0 {
		return fmt.Errorf("schedule.max_notify must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.MaxReviews < 1 {
		return fmt.Errorf("storage.max_reviews must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
