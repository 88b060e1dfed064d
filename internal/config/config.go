package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Session  SessionConfig  `mapstructure:"session"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gt=0"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gt=0"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig configures the optional delivery-report broker. An empty URL
// disables publishing.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// SMTPConfig configures operator alert mail. An empty host disables alerts.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type SessionConfig struct {
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts" validate:"gt=0"`
	ReconnectBackoff     time.Duration `mapstructure:"reconnect_backoff" validate:"gt=0"`
}

type NotifierConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPerCycle          int           `mapstructure:"max_per_cycle" validate:"gt=0"`
	MessageDelay         time.Duration `mapstructure:"message_delay" validate:"gt=0"`
	CountryCode          string        `mapstructure:"country_code" validate:"required"`
	RegistrationCacheTTL time.Duration `mapstructure:"registration_cache_ttl" validate:"gt=0"`
}

// DSN builds the lib/pq connection string. The same database holds both the
// appointment tables and the provider's credential container.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("session.max_reconnect_attempts", 5)
	viper.SetDefault("session.reconnect_backoff", 5*time.Second)
	viper.SetDefault("notifier.poll_interval", 30*time.Minute)
	viper.SetDefault("notifier.max_per_cycle", 10)
	viper.SetDefault("notifier.message_delay", 5*time.Second)
	viper.SetDefault("notifier.country_code", "55")
	viper.SetDefault("notifier.registration_cache_ttl", 24*time.Hour)
}

// LoadConfig reads config.yaml from path (or the working directory and
// ./config when path is empty), applies env overrides and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.AddConfigPath(path)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets come from the environment in deployed setups.
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		config.Database.Port, _ = strconv.Atoi(port)
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
