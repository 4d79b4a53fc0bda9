package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr     string
	AllowedOrigins []string

	// Tencent Cloud credentials. Required; the server refuses to start
	// without them rather than accept jobs it can never sign.
	SecretID  string
	SecretKey string
	Region    string

	PollInterval    time.Duration
	MaxPollAttempts int
	PollWorkers     int
	CallTimeout     time.Duration

	// Terminal job records are evicted after JobTTL; zero keeps them for
	// the life of the process.
	JobTTL          time.Duration
	JanitorInterval time.Duration

	// JobStore selects "memory" (default) or "redis".
	JobStore      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// RawLogDir, when set, enables raw vendor-response logging to disk.
	RawLogDir string
}

func Load() *Config {
	return &Config{
		ListenAddr:     getEnv("HTTP_ADDR", ":3000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:3000")),

		SecretID:  getEnv("TENCENTCLOUD_SECRET_ID", ""),
		SecretKey: getEnv("TENCENTCLOUD_SECRET_KEY", ""),
		Region:    getEnv("AI3D_REGION", ""),

		PollInterval:    getEnvDuration("POLL_INTERVAL", 5*time.Second),
		MaxPollAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 120),
		PollWorkers:     getEnvInt("POLL_WORKERS", 4),
		CallTimeout:     getEnvDuration("CALL_TIMEOUT", 15*time.Second),

		JobTTL:          getEnvDuration("JOB_TTL", time.Hour),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 5*time.Minute),

		JobStore:      getEnv("JOB_STORE", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", ""),

		RawLogDir: getEnv("RAW_LOG_DIR", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
