package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// MongoDB configuration
	MongoURI     string
	DatabaseName string
	DatasetStore string // "mongo" or "memory"

	// Server configuration
	Port              string
	CORSOrigins       string
	RateLimitPerMin   int
	MaxUploadBytes    int
	DailyMessageLimit int
	LogLevel          slog.Level

	// Primary AI (Gemini generateContent)
	GeminiAPIURL        string
	GeminiAPIKey        string
	GeminiTemperature   float64
	GeminiChatMaxTokens int
	GeminiFileMaxTokens int
	GeminiTimeout       time.Duration
	GeminiRPM           int

	// Backup key/value responder
	BackupAPIURL  string
	BackupTimeout time.Duration

	// Resolution thresholds
	HighConfidence float64
	LowConfidence  float64
}

func LoadConfig() *Config {
	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGO_DB_NAME", "accord_ai"),
		DatasetStore: getEnv("DATASET_STORE", "mongo"),

		Port:              getEnv("PORT", "5000"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:5173, http://localhost:5174, http://localhost:5175"),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MaxUploadBytes:    getEnvInt("MAX_UPLOAD_BYTES", 15*1024*1024),
		DailyMessageLimit: getEnvInt("DAILY_MESSAGE_LIMIT", 10),
		LogLevel:          parseLevel(getEnv("LOG_LEVEL", "info")),

		GeminiAPIURL:        getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiTemperature:   getEnvFloat("GEMINI_TEMPERATURE", 0.7),
		GeminiChatMaxTokens: getEnvInt("GEMINI_CHAT_MAX_TOKENS", 1000),
		GeminiFileMaxTokens: getEnvInt("GEMINI_FILE_MAX_TOKENS", 2000),
		GeminiTimeout:       getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		GeminiRPM:           getEnvInt("GEMINI_RPM", 0),

		BackupAPIURL:  getEnv("BACKUP_API_URL", ""),
		BackupTimeout: getEnvDuration("BACKUP_TIMEOUT", 10*time.Second),

		HighConfidence: getEnvFloat("HIGH_CONFIDENCE", 0.6),
		LowConfidence:  getEnvFloat("LOW_CONFIDENCE", 0.3),
	}

	// Validate configuration that degrades the pipeline when missing
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, primary AI stage will always fail over")
	}
	if cfg.BackupAPIURL == "" {
		slog.Warn("BACKUP_API_URL not set, backup stage disabled")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("Invalid number in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
