package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                int
	NatsURL             string
	NatsToken           string
	DatabaseURL         string
	BackendURL          string
	LogLevel            string
	HealthCheckInterval time.Duration
	RequestTimeout      time.Duration
}

func Load() Config {
	return Config{
		Port:                envInt("CROSSTALK_PORT", 8900),
		NatsURL:             envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:           envStr("NATS_TOKEN", ""),
		DatabaseURL:         envStr("DATABASE_URL", ""),
		BackendURL:          envStr("BACKEND_URL", "http://localhost:8000"),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		HealthCheckInterval: envDuration("HEALTH_CHECK_INTERVAL", time.Minute),
		RequestTimeout:      envDuration("REQUEST_TIMEOUT", 10*time.Second),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
