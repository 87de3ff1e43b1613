package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSupabase = "supabase"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	GeminiBaseURL      string
	GeminiAPIVersion   string
	GeminiMaxRetries   int
	GeminiRetryDelay   time.Duration
	VeoPollInterval    time.Duration
	SessionIdleTimeout time.Duration

	WebAddr     string
	CORSOrigins []string

	LibraryBackend string
	LibraryPath    string
	HandoffBackend string
	HandoffTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 600)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiMaxRetries:   getEnvInt("GEMINI_MAX_RETRIES", 2),
		GeminiRetryDelay:   getEnvDuration("GEMINI_RETRY_DELAY", 2*time.Second),
		VeoPollInterval:    getEnvDuration("VEO_POLL_INTERVAL", 5*time.Second),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 24*time.Hour),

		WebAddr:     getEnv("WEB_ADDR", ":8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		LibraryBackend: strings.ToLower(getEnv("LIBRARY_BACKEND", BackendFile)),
		LibraryPath:    getEnv("LIBRARY_PATH", "./data/library"),
		HandoffBackend: strings.ToLower(getEnv("HANDOFF_BACKEND", BackendMemory)),
		HandoffTTL:     getEnvDuration("HANDOFF_TTL", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SupabaseURL:   strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey:   strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		SupabaseTable: getEnv("SUPABASE_TABLE", "kol_library"),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	switch cfg.LibraryBackend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return Config{}, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase library backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown LIBRARY_BACKEND %q", cfg.LibraryBackend)
	}
	switch cfg.HandoffBackend {
	case BackendMemory, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown HANDOFF_BACKEND %q", cfg.HandoffBackend)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 600 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.VeoPollInterval < time.Second {
		cfg.VeoPollInterval = time.Second
	}
	if cfg.HandoffTTL <= 0 {
		cfg.HandoffTTL = time.Hour
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// NeedsRedis reports whether any backend is configured on Redis.
func (c Config) NeedsRedis() bool {
	return c.LibraryBackend == BackendRedis || c.HandoffBackend == BackendRedis
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
