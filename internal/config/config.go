package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jmfer1/go-emergency-alerts/internal/alerting"
)

type Config struct {
	Server   ServerConfig
	DB       DatabaseConfig
	Alerting AlertingConfig
	Gemini   GeminiConfig
	Firebase FirebaseConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
}

type DatabaseConfig struct {
	Path string
}

type AlertingConfig struct {
	RadiusKm    float64
	PushTimeout time.Duration
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type FirebaseConfig struct {
	CredentialsFile string
	AuthRequired    bool
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 5),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/emergency-alerts.db"),
		},
		Alerting: AlertingConfig{
			RadiusKm:    getEnvFloat("ALERT_RADIUS_KM", alerting.DefaultAlertRadiusKm),
			PushTimeout: getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", alerting.DefaultGeminiBaseURL),
			Timeout: getEnvDuration("ANNOTATE_TIMEOUT", 10*time.Second),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS", ""),
			AuthRequired:    getEnvBool("AUTH_REQUIRED", false),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 4),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 64),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Alerting.RadiusKm <= 0 {
		return fmt.Errorf("alert radius must be positive, got %f", c.Alerting.RadiusKm)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Worker.Count)
	}
	if c.Alerting.PushTimeout < time.Second || c.Gemini.Timeout < time.Second {
		return fmt.Errorf("external call timeouts must be at least 1 second")
	}
	if c.Firebase.AuthRequired && c.Firebase.CredentialsFile == "" {
		return fmt.Errorf("AUTH_REQUIRED needs FIREBASE_CREDENTIALS to be set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
