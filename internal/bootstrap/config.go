package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	Version    string

	DetectorURL            string
	DetectorTimeoutSeconds int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FeedAutoReconnect      bool
	FeedBackoffInitialMs   int
	FeedBackoffMaxAttempts int
	FeedBackoffMaxDelayMs  int

	SnapshotTTLSeconds int
	SnapshotMinGapMs   int

	BotToken             string
	ChatID               string
	AlertCooldownSeconds int

	SessionTTLMinutes    int
	SweepIntervalSeconds int
	ProbeIntervalSeconds int
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Version:    getEnv("VERSION", "1.0.0"),

		DetectorURL:            getEnv("DETECTOR_URL", "http://localhost:8000"),
		DetectorTimeoutSeconds: getEnvInt("DETECTOR_TIMEOUT_SECONDS", 60),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		FeedAutoReconnect:      getEnvBool("FEED_AUTO_RECONNECT", false),
		FeedBackoffInitialMs:   getEnvInt("FEED_BACKOFF_INITIAL_MS", 1000),
		FeedBackoffMaxAttempts: getEnvInt("FEED_BACKOFF_MAX_ATTEMPTS", 5),
		FeedBackoffMaxDelayMs:  getEnvInt("FEED_BACKOFF_MAX_DELAY_MS", 30000),

		SnapshotTTLSeconds: getEnvInt("SNAPSHOT_TTL_SECONDS", 60),
		SnapshotMinGapMs:   getEnvInt("SNAPSHOT_MIN_GAP_MS", 1000),

		BotToken:             getEnv("BOT_TOKEN", ""),
		ChatID:               getEnv("CHAT_ID", ""),
		AlertCooldownSeconds: getEnvInt("ALERT_COOLDOWN_SECONDS", 30),

		SessionTTLMinutes:    getEnvInt("SESSION_TTL_MINUTES", 30),
		SweepIntervalSeconds: getEnvInt("SWEEP_INTERVAL_SECONDS", 60),
		ProbeIntervalSeconds: getEnvInt("PROBE_INTERVAL_SECONDS", 30),
	}
}

func (c *Config) DetectorTimeout() time.Duration {
	return time.Duration(c.DetectorTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
