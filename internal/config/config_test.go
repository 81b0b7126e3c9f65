package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port 8080, got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr :9090, got %s", cfg.Service.MetricsAddr)
	}
	if cfg.Speech.Provider != "mock" {
		t.Errorf("expected default provider mock, got %s", cfg.Speech.Provider)
	}
	if cfg.Speech.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Speech.SampleRateHz)
	}
	if cfg.Transcript.MergeWindow != 2*time.Second {
		t.Errorf("expected default merge window 2s, got %v", cfg.Transcript.MergeWindow)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicMessage != "conversation.transcript.message" {
		t.Errorf("unexpected default message topic: %s", cfg.Kafka.TopicMessage)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("SPEECH_PROVIDER", "speechmatics")
	t.Setenv("MERGE_WINDOW", "5s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("PALETTE_COLORS", "#111111,#222222")

	cfg := Load()

	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Service.HTTPPort)
	}
	if cfg.Speech.Provider != "speechmatics" {
		t.Errorf("expected provider speechmatics, got %s", cfg.Speech.Provider)
	}
	if cfg.Transcript.MergeWindow != 5*time.Second {
		t.Errorf("expected merge window 5s, got %v", cfg.Transcript.MergeWindow)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if len(cfg.Transcript.Colors) != 2 || cfg.Transcript.Colors[0] != "#111111" {
		t.Errorf("unexpected colors: %v", cfg.Transcript.Colors)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SPEECH_SAMPLE_RATE_HZ", "not-a-number")
	t.Setenv("MERGE_WINDOW", "soon")
	t.Setenv("KAFKA_ENABLED", "yep")

	cfg := Load()

	if cfg.Speech.SampleRateHz != 16000 {
		t.Errorf("expected fallback sample rate 16000, got %d", cfg.Speech.SampleRateHz)
	}
	if cfg.Transcript.MergeWindow != 2*time.Second {
		t.Errorf("expected fallback merge window 2s, got %v", cfg.Transcript.MergeWindow)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected fallback Kafka disabled")
	}
}

func TestLoad_KafkaPrincipalFallsBackToService(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "conv-svc")

	cfg := Load()

	if cfg.Kafka.Principal != "conv-svc" {
		t.Errorf("expected Kafka principal conv-svc, got %s", cfg.Kafka.Principal)
	}
}
