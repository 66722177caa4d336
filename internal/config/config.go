// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Encryption EncryptionConfig
	JWT        JWTConfig
	Gateway    GatewayConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds Redis connection configuration. Redis is optional;
// an empty host disables the chat-history cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// EncryptionConfig holds the key used to encrypt stored API keys.
type EncryptionConfig struct {
	Key string // 32-byte key for AES-256 encryption
}

// JWTConfig holds JWT validation configuration. Tokens are issued by the
// platform identity service; this service only verifies them.
type JWTConfig struct {
	Secret string
}

// GatewayConfig holds LLM gateway tuning parameters.
type GatewayConfig struct {
	// EndpointTimeout bounds a single completion attempt. A hung upstream
	// becomes a failed attempt and falls through to the fallback endpoint.
	EndpointTimeout time.Duration
	// HistoryLimit caps how many session messages are loaded per chat turn.
	HistoryLimit int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// The .env file is optional; in containers everything arrives via
	// environment variables.
	_ = viper.ReadInConfig()

	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Mode: viper.GetString("GIN_MODE"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Encryption: EncryptionConfig{
			Key: viper.GetString("ENCRYPTION_KEY"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Gateway: GatewayConfig{
			EndpointTimeout: time.Duration(viper.GetInt("GATEWAY_ENDPOINT_TIMEOUT")) * time.Second,
			HistoryLimit:    viper.GetInt("GATEWAY_HISTORY_LIMIT"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}

	return cfg, nil
}

// setDefaults sets default values for configuration.
func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GIN_MODE", "release")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_ENDPOINT_TIMEOUT", 60)
	viper.SetDefault("GATEWAY_HISTORY_LIMIT", 50)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
}

// GetDSN returns the database connection string.
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode
}

// GetRedisAddr returns the Redis connection address.
func (c *RedisConfig) GetRedisAddr() string {
	return c.Host + ":" + c.Port
}
