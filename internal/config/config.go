package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Env         string
	Addr        string
	DBDSN       string
	RedisURL    string
	TokenSecret string
	SessionTTL  time.Duration
	LogLevel    string

	GoogleClientID string
	AppleServiceID string

	FCMProjectID   string
	FCMCredentials string

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	SummaryMaxAttempts int
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:         getenv("APP_ENV"),
		Addr:        getenv("APP_ADDR"),
		DBDSN:       getenv("APP_DB_DSN"),
		RedisURL:    getenv("APP_REDIS_URL"),
		TokenSecret: getenv("APP_TOKEN_SECRET"),
		LogLevel:    getenv("APP_LOG_LEVEL"),

		GoogleClientID: getenv("APP_GOOGLE_CLIENT_ID"),
		AppleServiceID: getenv("APP_APPLE_SERVICE_ID"),

		FCMProjectID:   getenv("APP_FCM_PROJECT_ID"),
		FCMCredentials: getenv("APP_FCM_CREDENTIALS"),

		AIBaseURL: getenv("APP_AI_URL"),
		AIAPIKey:  getenv("APP_AI_API_KEY"),
		AIModel:   getenv("APP_AI_MODEL"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.AIModel == "" {
		cfg.AIModel = "village-summary-1"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 30 * 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	aiTimeoutRaw := getenv("APP_AI_TIMEOUT")
	if aiTimeoutRaw == "" {
		cfg.AITimeout = 30 * time.Second
	} else {
		d, err := time.ParseDuration(aiTimeoutRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_AI_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return Config{}, errors.New("APP_AI_TIMEOUT: must be > 0")
		}
		cfg.AITimeout = d
	}

	attemptsRaw := getenv("APP_SUMMARY_MAX_ATTEMPTS")
	if attemptsRaw == "" {
		cfg.SummaryMaxAttempts = 3
	} else {
		var n int
		if _, err := fmt.Sscanf(attemptsRaw, "%d", &n); err != nil || n < 1 {
			return Config{}, errors.New("APP_SUMMARY_MAX_ATTEMPTS: must be a positive integer")
		}
		cfg.SummaryMaxAttempts = n
	}

	if cfg.IsProd() {
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.TokenSecret) < 32 {
			return Config{}, errors.New("APP_TOKEN_SECRET: must be at least 32 bytes in prod")
		}
		if cfg.AIBaseURL == "" {
			return Config{}, errors.New("APP_AI_URL: required in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }
