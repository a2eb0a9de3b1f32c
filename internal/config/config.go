package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Posting API
	PostingBaseURL string
	PostingTimeout time.Duration

	// Credentials
	AccessToken      string
	AccessSecret     string
	TokenRefreshURL  string
	RefreshTimeout   time.Duration
	CredentialMaxAge time.Duration

	// Publishing loop. The delay between consecutive posts is the dominant
	// cost driver and varies per provider quota tier; never hard-code it.
	ItemDelay        time.Duration
	BreakerThreshold int
	MaxRetries       int
	MaxBatchDuration time.Duration
	RateWindow       time.Duration

	// Background scheduler. Interval 0 disables it: batches are then
	// triggered exclusively via the HTTP endpoint.
	SchedulerInterval  time.Duration
	SchedulerBatchSize int
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		PostingBaseURL: getEnv("POSTING_BASE_URL", "https://api.twitter.com/2"),
		PostingTimeout: getDuration("POSTING_TIMEOUT", 15*time.Second),

		AccessToken:      os.Getenv("POSTING_ACCESS_TOKEN"),
		AccessSecret:     os.Getenv("POSTING_ACCESS_SECRET"),
		TokenRefreshURL:  os.Getenv("TOKEN_REFRESH_URL"),
		RefreshTimeout:   getDuration("TOKEN_REFRESH_TIMEOUT", 5*time.Second),
		CredentialMaxAge: getDuration("CREDENTIAL_MAX_AGE", 90*time.Second),

		ItemDelay:        getDuration("PUBLISH_ITEM_DELAY", 30*time.Second),
		BreakerThreshold: getInt("PUBLISH_BREAKER_THRESHOLD", 10),
		MaxRetries:       getInt("PUBLISH_MAX_RETRIES", 3),
		MaxBatchDuration: getDuration("PUBLISH_MAX_BATCH_DURATION", 8*time.Minute),
		RateWindow:       getDuration("PUBLISH_RATE_WINDOW", 15*time.Minute),

		SchedulerInterval:  getDuration("SCHEDULER_INTERVAL", 0),
		SchedulerBatchSize: getInt("SCHEDULER_BATCH_SIZE", 10),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
