// Package config loads pipeline configuration from environment variables
// (optionally seeded from a .env file), following the recognized keys and
// defaults in the system specification.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized configuration key for the risk pipeline.
type Config struct {
	// Persistence
	MongoURI    string
	MongoDBName string

	// Stream bus + dedup index backend
	RedisURL string

	// Credentials. Empty string disables the corresponding channel.
	GeminiAPIKey   string
	NewsAPIKey     string
	SendGridAPIKey string
	SlackWebhookURL string

	// Fetcher / relevance tuning
	NewsFetchIntervalMinutes int
	NewsRelevanceThreshold   float64

	// Scoring thresholds
	AlertThresholdScore    float64
	CriticalThresholdScore float64
	HighThresholdScore     float64
	MediumThresholdScore   float64

	// Propagation
	PropagationThreshold float64

	// Tenant selection
	CompanyID string

	// Ambient
	LogLevel    string
	Environment string

	// Timeouts (§5 "Cancellation & timeouts")
	NewsTimeout         time.Duration
	EmbeddingTimeout    time.Duration
	LLMTimeout          time.Duration
	NotificationTimeout time.Duration
	HandlerTimeout      time.Duration

	// StreamBus tuning
	ConsumerIdleTimeout time.Duration
	DedupTTL            time.Duration

	// HTTP surface for cmd/api
	Addr string
}

// Load reads configuration from the environment, applying the documented
// defaults for anything unset. A .env file in the working directory is
// loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "riskpipe"),

		RedisURL: getEnv("REDIS_URL", getEnv("BROKER_URL", "redis://localhost:6379")),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		NewsAPIKey:      getEnv("NEWSAPI_KEY", ""),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),

		NewsFetchIntervalMinutes: getEnvInt("NEWS_FETCH_INTERVAL_MINUTES", 15),
		NewsRelevanceThreshold:   getEnvFloat("NEWS_RELEVANCE_THRESHOLD", 0.3),

		AlertThresholdScore:    getEnvFloat("ALERT_THRESHOLD_SCORE", 3.0),
		CriticalThresholdScore: getEnvFloat("CRITICAL_THRESHOLD_SCORE", 10.0),
		HighThresholdScore:     getEnvFloat("HIGH_THRESHOLD_SCORE", 6.0),
		MediumThresholdScore:   getEnvFloat("MEDIUM_THRESHOLD_SCORE", 3.0),

		PropagationThreshold: getEnvFloat("PROPAGATION_THRESHOLD", 1.0),

		CompanyID: getEnv("COMPANY_ID", ""),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),

		NewsTimeout:         time.Duration(getEnvInt("NEWS_TIMEOUT_SEC", 30)) * time.Second,
		EmbeddingTimeout:    time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SEC", 15)) * time.Second,
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_SEC", 60)) * time.Second,
		NotificationTimeout: time.Duration(getEnvInt("NOTIFICATION_TIMEOUT_SEC", 10)) * time.Second,
		HandlerTimeout:      time.Duration(getEnvInt("HANDLER_TIMEOUT_MIN", 25)) * time.Minute,

		ConsumerIdleTimeout: time.Duration(getEnvInt("CONSUMER_IDLE_TIMEOUT_SEC", 60)) * time.Second,
		DedupTTL:            time.Duration(getEnvInt("DEDUP_TTL_HOURS", 48)) * time.Hour,

		Addr: getEnv("API_ADDR", ":8080"),
	}
}

// IsDevelopment reports whether the configured environment is development.
func (c *Config) IsDevelopment() bool { return c.Environment == "development" }

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
