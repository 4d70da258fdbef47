// Package config loads the service configuration from the environment. Every
// setting has a development default so a bare `go run` against local
// MongoDB/RabbitMQ works without a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Port string
}

type MongoConfig struct {
	URI      string
	Database string
}

type BrokerConfig struct {
	Host                 string
	Port                 int
	Username             string
	Password             string
	VHost                string
	Heartbeat            time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	MaxChannels          int
	Prefetch             int
}

type PushConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SecurityConfig struct {
	JWTSecret string
}

type WebsocketConfig struct {
	SendBuffer int
}

type LoggingConfig struct {
	Level     string
	Format    string
	Directory string
}

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Broker    BrokerConfig
	Push      PushConfig
	Security  SecurityConfig
	Websocket WebsocketConfig
	Logging   LoggingConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "primeestate"),
		},
		Broker: BrokerConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Username: getEnv("RABBITMQ_USERNAME", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", "/"),
		},
		Push: PushConfig{
			BaseURL: getEnv("EXPO_PUSH_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			Directory: getEnv("LOG_DIR", "./logs"),
		},
	}

	var err error
	if cfg.Broker.Port, err = getEnvInt("RABBITMQ_PORT", 5672); err != nil {
		return nil, err
	}
	if cfg.Broker.Heartbeat, err = getEnvDuration("RABBITMQ_HEARTBEAT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Broker.ReconnectDelay, err = getEnvDuration("RABBITMQ_RECONNECT_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Broker.MaxReconnectAttempts, err = getEnvInt("RABBITMQ_MAX_RECONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.Broker.MaxChannels, err = getEnvInt("RABBITMQ_MAX_CHANNELS", 10); err != nil {
		return nil, err
	}
	if cfg.Broker.Prefetch, err = getEnvInt("RABBITMQ_PREFETCH", 10); err != nil {
		return nil, err
	}
	if cfg.Push.Timeout, err = getEnvDuration("EXPO_PUSH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Websocket.SendBuffer, err = getEnvInt("WS_SEND_BUFFER", 8); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	// Accept both bare seconds ("30") and Go durations ("30s").
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
