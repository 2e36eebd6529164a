package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean and deploys stay twelve-factor.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisURL        string
	KafkaBrokers    []string
	AuditTopic      string
	JWTSigningKey   string
	ConsentCacheTTL time.Duration
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
//
// MEDGATE_DATABASE_URL and MEDGATE_REDIS_URL are optional: when empty the
// process runs on in-memory stores, which is only suitable for development
// and tests.
func FromEnv() Server {
	addr := os.Getenv("MEDGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("MEDGATE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("MEDGATE_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "medgate.audit.entries"
	}

	var brokers []string
	if raw := os.Getenv("MEDGATE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("MEDGATE_DATABASE_URL"),
		RedisURL:        os.Getenv("MEDGATE_REDIS_URL"),
		KafkaBrokers:    brokers,
		AuditTopic:      auditTopic,
		JWTSigningKey:   jwtSigningKey,
		ConsentCacheTTL: durationFromEnv("MEDGATE_CONSENT_CACHE_TTL", 30*time.Second),
		ShutdownTimeout: durationFromEnv("MEDGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
