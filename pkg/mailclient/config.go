package mailclient

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Sender  string

	Timeout time.Duration

	RetryCount int
	RetryDelay time.Duration

	RateLimit int
	RateBurst int

	CircuitBreakerEnabled bool
	CBFailureThreshold    int
	CBRecoveryTime        time.Duration
	CBMinRequests         int
	CBSamplingDuration    time.Duration
	CBHalfOpenMaxSuccess  int
}

func LoadFromEnv() Config {
	return Config{
		BaseURL: os.Getenv("MAIL_PROVIDER_URL"),
		APIKey:  os.Getenv("MAIL_PROVIDER_API_KEY"),
		Sender:  getStr("MAIL_PROVIDER_SENDER", "noreply@harbor-backoffice.io"),

		Timeout: time.Second * time.Duration(getInt("MAIL_CLIENT_TIMEOUT", 15)),

		RetryCount: getInt("MAIL_CLIENT_RETRY_COUNT", 2),
		RetryDelay: time.Second * time.Duration(getInt("MAIL_CLIENT_RETRY_DELAY", 1)),

		RateLimit: getInt("MAIL_CLIENT_RATE_LIMIT", 300),
		RateBurst: getInt("MAIL_CLIENT_RATE_BURST", 5),

		CircuitBreakerEnabled: getBool("MAIL_CLIENT_ENABLE_CIRCUIT_BREAKER", true),
		CBFailureThreshold:    getInt("MAIL_CLIENT_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
		CBRecoveryTime:        time.Second * time.Duration(getInt("MAIL_CLIENT_CIRCUIT_BREAKER_RECOVERY_TIME", 60)),
		CBMinRequests:         getInt("MAIL_CLIENT_CIRCUIT_BREAKER_MIN_REQUESTS", 10),
		CBSamplingDuration:    time.Second * time.Duration(getInt("MAIL_CLIENT_CIRCUIT_BREAKER_SAMPLING_DURATION", 60)),
		CBHalfOpenMaxSuccess:  getInt("MAIL_CLIENT_CIRCUIT_BREAKER_HALF_OPEN_MAX_SUCCESS", 3),
	}
}

func getStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		return v == "true"
	}
	return def
}
