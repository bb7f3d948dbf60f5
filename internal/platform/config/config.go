package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	Environment    string
	VerifyBaseURL  string
	APISigningKey  string
	APITokenTTL    time.Duration
	DatabaseURL    string
	Redis          RedisConfig
	CacheTTL       time.Duration
	KafkaBrokers   string
	AuditTopic     string
	SignerAgentURL string

	VerifyRateLimit  int
	VerifyRateWindow time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("SKILLCHAIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	environment := os.Getenv("SKILLCHAIN_ENV")
	if environment == "" {
		environment = "development"
	}

	verifyBaseURL := os.Getenv("VERIFY_BASE_URL")
	if verifyBaseURL == "" {
		verifyBaseURL = "http://localhost:8080"
	}

	apiSigningKey := os.Getenv("API_SIGNING_KEY")
	if apiSigningKey == "" {
		// Use a default for development - should be overridden in production
		apiSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           addr,
		Environment:    environment,
		VerifyBaseURL:  verifyBaseURL,
		APISigningKey:  apiSigningKey,
		APITokenTTL:    durationEnv("API_TOKEN_TTL", 12*time.Hour),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis:          redisFromEnv(),
		CacheTTL:       durationEnv("CREDENTIAL_CACHE_TTL", 10*time.Minute),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		AuditTopic:     envOr("AUDIT_TOPIC", "skillchain.audit"),
		SignerAgentURL: os.Getenv("SIGNER_AGENT_URL"),

		VerifyRateLimit:  intEnv("VERIFY_RATE_LIMIT", 60),
		VerifyRateWindow: durationEnv("VERIFY_RATE_WINDOW", time.Minute),
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
		MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
