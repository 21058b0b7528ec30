package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean.
type Server struct {
	Addr              string
	PostgresDSN       string
	RedisURL          string
	KafkaBrokers      []string
	AuditTopic        string
	ProxyFileBucket   string
	JWTSigningKey     string
	OperatorUser      string
	OperatorPassHash  string
	AutoStartInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:              getenv("ASAMBLEA_ADDR", ":8080"),
		PostgresDSN:       os.Getenv("ASAMBLEA_POSTGRES_DSN"),
		RedisURL:          os.Getenv("ASAMBLEA_REDIS_URL"),
		AuditTopic:        getenv("ASAMBLEA_AUDIT_TOPIC", "assembly-audit"),
		ProxyFileBucket:   os.Getenv("ASAMBLEA_PROXY_BUCKET"),
		JWTSigningKey:     getenv("ASAMBLEA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		OperatorUser:      getenv("ASAMBLEA_OPERATOR_USER", "operator"),
		OperatorPassHash:  os.Getenv("ASAMBLEA_OPERATOR_PASS_HASH"),
		AutoStartInterval: 30 * time.Second,
	}
	if brokers := os.Getenv("ASAMBLEA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if raw := os.Getenv("ASAMBLEA_AUTOSTART_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.AutoStartInterval = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
