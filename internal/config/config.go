package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

const defaultNewsFeeds = "g1=https://g1.globo.com/rss/g1/sp/vale-do-paraiba-regiao/," +
	"band=https://www.band.uol.com.br/rss/noticias.xml"

// Config holds all configuration values.
type Config struct {
	// Key-value store
	KVBackend  string
	KVURL      string
	StateTable string

	// Gemini
	GeminiAPIKey   string
	GeminiKeyParam string
	GeminiModel    string
	GeminiBaseURL  string
	AITimeout      time.Duration

	// News
	NewsFeeds   string
	NewsTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Local server
	Port string
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		KVBackend:  strings.ToLower(getEnv("KV_BACKEND", BackendRedis)),
		KVURL:      getEnv("KV_URL", os.Getenv("REDIS_URL")),
		StateTable: os.Getenv("STATE_TABLE"),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiKeyParam: os.Getenv("GEMINI_KEY_PARAM"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AITimeout:      envSeconds("AI_TIMEOUT_SECONDS", 25),

		NewsFeeds:   getEnv("NEWS_FEEDS", defaultNewsFeeds),
		NewsTimeout: envSeconds("NEWS_TIMEOUT_SECONDS", 8),

		LogFile:  os.Getenv("LOG_FILE"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),

		Port: getEnv("PORT", "8080"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.KVBackend {
	case BackendRedis:
		if c.KVURL == "" {
			return errors.New("config: KV_URL or REDIS_URL is required for the redis backend")
		}
	case BackendDynamoDB:
		if c.StateTable == "" {
			return errors.New("config: STATE_TABLE is required for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown KV_BACKEND %q", c.KVBackend)
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c Config) NeedsAWS() bool {
	return c.KVBackend == BackendDynamoDB || (c.GeminiAPIKey == "" && c.GeminiKeyParam != "")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envSeconds(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
