package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string
	LogLevel      slog.Level

	DatabaseURL string

	Redis RedisConfig

	Bureau BureauConfig

	Kafka KafkaConfig

	ShutdownTimeout time.Duration
}

// RedisConfig configures the optional bureau response cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// BureauConfig points at the external credit bureau data source.
type BureauConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// KafkaConfig configures the optional async audit event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments override everything.
func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("BUROGATE_ADDR", ":8080"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LogLevel:        parseLevel(os.Getenv("LOG_LEVEL")),
		DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost:5432/burogate?sslmode=disable"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getDuration("BUREAU_CACHE_TTL", 5*time.Minute),
		},
		Bureau: BureauConfig{
			BaseURL: os.Getenv("BUREAU_BASE_URL"),
			APIKey:  os.Getenv("BUREAU_API_KEY"),
			Timeout: getDuration("BUREAU_TIMEOUT", 10*time.Second),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitComma(brokers),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "burogate.audit"),
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
