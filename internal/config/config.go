package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName    string
	AppVersion string
	Port       string

	Environment   string
	AdminAPIToken string

	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// Dispatch relay tuning. Backoff is exponential from RelayBackoffBase,
	// doubling per attempt up to RelayBackoffCap.
	RelayPollInterval   time.Duration
	RelayBatchSize      int
	RelayLeaseDuration  time.Duration
	RelayMaxRetries     int
	RelayMaxConcurrency int
	RelayBackoffBase    time.Duration
	RelayBackoffCap     time.Duration

	// Outbox archiver: processed rows older than the retention window are
	// pruned. Dead-lettered rows are never pruned.
	ArchiveInterval  time.Duration
	ArchiveRetention time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "harbor-backoffice"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Port:          getenv("PORT", "8080"),
		Environment:   getenv("ENVIRONMENT", "development"),
		AdminAPIToken: strings.TrimSpace(getenv("ADMIN_API_TOKEN", "")),

		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "backoffice"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 100),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 60),

		RelayPollInterval:   getenvDuration("RELAY_POLL_INTERVAL", 2*time.Second),
		RelayBatchSize:      getenvInt("RELAY_BATCH_SIZE", 25),
		RelayLeaseDuration:  getenvDuration("RELAY_LEASE_DURATION", 30*time.Second),
		RelayMaxRetries:     getenvInt("RELAY_MAX_RETRIES", 8),
		RelayMaxConcurrency: getenvInt("RELAY_MAX_CONCURRENCY", 8),
		RelayBackoffBase:    getenvDuration("RELAY_BACKOFF_BASE", 2*time.Second),
		RelayBackoffCap:     getenvDuration("RELAY_BACKOFF_CAP", 5*time.Minute),

		ArchiveInterval:  getenvDuration("ARCHIVE_INTERVAL", time.Hour),
		ArchiveRetention: getenvDuration("ARCHIVE_RETENTION", 7*24*time.Hour),
	}

	return &cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
