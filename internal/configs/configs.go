/*
Package configs is responsible for loading and parsing the application's
configuration settings.

Configuration comes from environment variables (optionally seeded from a local
.env file), covering the listening address, session limits, protocol size caps,
and timeouts. Every value has a development-friendly default.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig contains all configuration parameters required for the server to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Host        string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Session Settings
	MaxUsers        int
	MaxMessageBytes int64
	IdleTimeout     time.Duration
	ChatQueueSize   int
}

// Addr returns the host:port listening address. Binding to a loopback host
// restricts the server to local clients; a wildcard host allows remote ones.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads and parses the application configuration from environment
// variables, loading a local .env file first when one exists. It applies
// defaults, performs type conversions and validation, and returns the
// populated AppConfig.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.Host = os.Getenv("HOST")
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the valid range (1-65535)", port)
	}
	cfg.Port = port

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Session Settings ---
	maxUsers, err := intEnv("MAX_USERS", 16)
	if err != nil {
		return nil, err
	}
	if maxUsers < 1 {
		return nil, fmt.Errorf("MAX_USERS must be at least 1, got %d", maxUsers)
	}
	cfg.MaxUsers = maxUsers

	maxMessageBytes, err := intEnv("MAX_MESSAGE_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	if maxMessageBytes < 1024 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be at least 1024, got %d", maxMessageBytes)
	}
	cfg.MaxMessageBytes = int64(maxMessageBytes)

	idleSeconds, err := intEnv("IDLE_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	if idleSeconds < 1 {
		return nil, fmt.Errorf("IDLE_TIMEOUT_SECONDS must be at least 1, got %d", idleSeconds)
	}
	cfg.IdleTimeout = time.Duration(idleSeconds) * time.Second

	chatQueueSize, err := intEnv("CHAT_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	if chatQueueSize < 1 {
		return nil, fmt.Errorf("CHAT_QUEUE_SIZE must be at least 1, got %d", chatQueueSize)
	}
	cfg.ChatQueueSize = chatQueueSize

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
