package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVICE_PRINCIPAL", "ENV", "HTTP_PORT", "OBSERVABILITY_ADDR", "PUBLIC_HOST",
		"OPENAI_API_KEY", "OPENAI_REALTIME_URL", "OPENAI_REALTIME_MODEL", "OPENAI_DIAL_TIMEOUT",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPT", "KAFKA_TOPIC_COMPLETED", "KAFKA_PRINCIPAL",
		"DATABASE_URL", "RETRIEVAL_BASE_URL", "RETRIEVAL_API_KEY", "RETRIEVAL_MAX_RESULTS", "RETRIEVAL_TIMEOUT",
		"SESSION_SETUP_TIMEOUT", "CHANNEL_MAX_RECONNECTS", "CHANNEL_RECONNECT_BASE_DELAY",
		"CHANNEL_RECONNECT_MAX_DELAY", "STREAM_HEARTBEAT_INTERVAL", "STREAM_FIRST_FRAME_GRACE",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-call-relay" {
		t.Errorf("expected default principal 'svc-call-relay', got %s", cfg.Service.Principal)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Server.Port)
	}
	if cfg.OpenAI.RealtimeURL != "wss://api.openai.com/v1/realtime" {
		t.Errorf("unexpected realtime URL %s", cfg.OpenAI.RealtimeURL)
	}
	if cfg.OpenAI.Model != "gpt-4o-realtime-preview-2024-12-17" {
		t.Errorf("unexpected realtime model %s", cfg.OpenAI.Model)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicTranscript != "call.transcript" {
		t.Errorf("unexpected transcript topic %s", cfg.Kafka.TopicTranscript)
	}
	if cfg.Retrieval.MaxResults != 3 {
		t.Errorf("expected default retrieval max results 3, got %d", cfg.Retrieval.MaxResults)
	}
	if cfg.Session.SetupTimeout != 15*time.Second {
		t.Errorf("expected default setup timeout 15s, got %v", cfg.Session.SetupTimeout)
	}
	if cfg.Session.MaxReconnectAttempts != 3 {
		t.Errorf("expected default max reconnects 3, got %d", cfg.Session.MaxReconnectAttempts)
	}
	if cfg.Session.ReconnectBaseDelay != time.Second {
		t.Errorf("expected default reconnect base delay 1s, got %v", cfg.Session.ReconnectBaseDelay)
	}
	if cfg.Session.ReconnectMaxDelay != 10*time.Second {
		t.Errorf("expected default reconnect max delay 10s, got %v", cfg.Session.ReconnectMaxDelay)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)

	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	os.Setenv("SESSION_SETUP_TIMEOUT", "30s")
	os.Setenv("CHANNEL_MAX_RECONNECTS", "5")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Server.Port)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Session.SetupTimeout != 30*time.Second {
		t.Errorf("expected setup timeout 30s, got %v", cfg.Session.SetupTimeout)
	}
	if cfg.Session.MaxReconnectAttempts != 5 {
		t.Errorf("expected max reconnects 5, got %d", cfg.Session.MaxReconnectAttempts)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)

	os.Setenv("CHANNEL_MAX_RECONNECTS", "not-a-number")
	os.Setenv("SESSION_SETUP_TIMEOUT", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Session.MaxReconnectAttempts != 3 {
		t.Errorf("expected default max reconnects on invalid input, got %d", cfg.Session.MaxReconnectAttempts)
	}
	if cfg.Session.SetupTimeout != 15*time.Second {
		t.Errorf("expected default setup timeout on invalid input, got %v", cfg.Session.SetupTimeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)

	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestSplitNonEmpty(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a,b,c", 3},
		{"a, ,b", 2},
	}
	for _, tt := range tests {
		if got := splitNonEmpty(tt.in); len(got) != tt.want {
			t.Errorf("splitNonEmpty(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
}
