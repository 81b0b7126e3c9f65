// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsAddr string
	LogLevel    string
}

// SpeechConfig selects and configures the recognition provider.
type SpeechConfig struct {
	// Provider is one of "mock", "speechmatics", "google".
	Provider     string
	Language     string
	SampleRateHz int

	// Speechmatics settings.
	RealtimeURL   string
	APIKey        string
	TokenEndpoint string
	TokenTTL      time.Duration
}

// TranscriptConfig tunes the assembly engine.
type TranscriptConfig struct {
	// MergeWindow bounds the gap between consecutive segments of the
	// same speaker that still collapse into one message. Zero or
	// negative disables the gap check.
	MergeWindow time.Duration
	// Colors overrides the display palette. Empty keeps the default.
	Colors []string
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicMessage string
	Principal    string
}

// Configuration is the root config for the service.
type Configuration struct {
	Service    ServiceConfig
	Speech     SpeechConfig
	Transcript TranscriptConfig
	Kafka      KafkaConfig
}

// Load reads configuration from the environment, falling back to
// defaults that run the service against the mock provider with Kafka
// in log-only mode.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "dialogue-transcription-service")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		},
		Speech: SpeechConfig{
			Provider:      envOrDefault("SPEECH_PROVIDER", "mock"),
			Language:      envOrDefault("SPEECH_LANGUAGE", "en"),
			SampleRateHz:  envIntOrDefault("SPEECH_SAMPLE_RATE_HZ", 16000),
			RealtimeURL:   envOrDefault("SPEECHMATICS_RT_URL", "wss://eu2.rt.speechmatics.com/v2"),
			APIKey:        os.Getenv("SPEECHMATICS_API_KEY"),
			TokenEndpoint: envOrDefault("TOKEN_ENDPOINT", "https://mp.speechmatics.com/v1/api_keys"),
			TokenTTL:      envDurationOrDefault("TOKEN_TTL", time.Hour),
		},
		Transcript: TranscriptConfig{
			MergeWindow: envDurationOrDefault("MERGE_WINDOW", 2*time.Second),
			Colors:      envListOrDefault("PALETTE_COLORS", nil),
		},
		Kafka: KafkaConfig{
			Enabled:      envBoolOrDefault("KAFKA_ENABLED", false),
			Brokers:      envListOrDefault("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "conversation.transcript.partial"),
			TopicMessage: envOrDefault("KAFKA_TOPIC_MESSAGE", "conversation.transcript.message"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envListOrDefault(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
