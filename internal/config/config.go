// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Service       ServiceConfig
	Server        ServerConfig
	OpenAI        OpenAIConfig
	Kafka         KafkaConfig
	Database      DatabaseConfig
	Retrieval     RetrievalConfig
	Session       SessionConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	Env       string
}

type ServerConfig struct {
	Port              string
	ObservabilityAddr string
	// PublicHost is the externally reachable host used when rendering the
	// stream URL in TwiML responses, e.g. "calls.example.com".
	PublicHost string
}

type OpenAIConfig struct {
	APIKey      string
	RealtimeURL string
	Model       string
	DialTimeout time.Duration
}

type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicCompleted  string
	Principal       string
}

type DatabaseConfig struct {
	URL string
}

type RetrievalConfig struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

type SessionConfig struct {
	SetupTimeout         time.Duration
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	HeartbeatInterval    time.Duration
	FirstFrameGrace      time.Duration
}

type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, falling back to
// defaults for anything unset or unparsable.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-call-relay")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			Env:       envOrDefault("ENV", "prod"),
		},
		Server: ServerConfig{
			Port:              envOrDefault("HTTP_PORT", "8080"),
			ObservabilityAddr: envOrDefault("OBSERVABILITY_ADDR", ":9090"),
			PublicHost:        envOrDefault("PUBLIC_HOST", "localhost:8080"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			RealtimeURL: envOrDefault("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
			Model:       envOrDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17"),
			DialTimeout: envOrDefaultDuration("OPENAI_DIAL_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "call.transcript"),
			TopicCompleted:  envOrDefault("KAFKA_TOPIC_COMPLETED", "call.completed"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Retrieval: RetrievalConfig{
			BaseURL:    os.Getenv("RETRIEVAL_BASE_URL"),
			APIKey:     os.Getenv("RETRIEVAL_API_KEY"),
			MaxResults: envOrDefaultInt("RETRIEVAL_MAX_RESULTS", 3),
			Timeout:    envOrDefaultDuration("RETRIEVAL_TIMEOUT", 5*time.Second),
		},
		Session: SessionConfig{
			SetupTimeout:         envOrDefaultDuration("SESSION_SETUP_TIMEOUT", 15*time.Second),
			MaxReconnectAttempts: envOrDefaultInt("CHANNEL_MAX_RECONNECTS", 3),
			ReconnectBaseDelay:   envOrDefaultDuration("CHANNEL_RECONNECT_BASE_DELAY", time.Second),
			ReconnectMaxDelay:    envOrDefaultDuration("CHANNEL_RECONNECT_MAX_DELAY", 10*time.Second),
			HeartbeatInterval:    envOrDefaultDuration("STREAM_HEARTBEAT_INTERVAL", 20*time.Second),
			FirstFrameGrace:      envOrDefaultDuration("STREAM_FIRST_FRAME_GRACE", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
