// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Remote   RemoteConfig
}

type ServerConfig struct {
	HTTPPort    string
	Environment string
	AutoMigrate bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RemoteConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	AccessToken    string
	ClientID       string
	ClientSecret   string
	TokenURL       string
	RefreshToken   string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "eisenflow"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Remote: RemoteConfig{
			BaseURL:        getEnv("REMOTE_BASE_URL", "https://api.ticktick.com/open/v1"),
			RequestTimeout: getEnvAsDuration("REMOTE_REQUEST_TIMEOUT", 15*time.Second),
			AccessToken:    getEnv("REMOTE_ACCESS_TOKEN", ""),
			ClientID:       getEnv("REMOTE_CLIENT_ID", ""),
			ClientSecret:   getEnv("REMOTE_CLIENT_SECRET", ""),
			TokenURL:       getEnv("REMOTE_TOKEN_URL", "https://ticktick.com/oauth/token"),
			RefreshToken:   getEnv("REMOTE_REFRESH_TOKEN", ""),
		},
	}, nil
}

// ValidateConfig checks settings that have no usable default.
func (c *Config) ValidateConfig() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL must not be empty")
	}
	if c.Remote.RequestTimeout <= 0 {
		return fmt.Errorf("REMOTE_REQUEST_TIMEOUT must be positive")
	}
	if !c.IsDevelopment() && c.Remote.AccessToken == "" && c.Remote.RefreshToken == "" {
		return fmt.Errorf("remote credentials required: set REMOTE_ACCESS_TOKEN or REMOTE_REFRESH_TOKEN")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
