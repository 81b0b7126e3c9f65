// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dialogue_transcription"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram
	SessionErrors   *prometheus.CounterVec

	// Channel event metrics
	EventsReceived *prometheus.CounterVec

	// Engine metrics
	SegmentsIngested  prometheus.Counter
	SegmentsSkipped   prometheus.Counter
	MessagesAppended  prometheus.Counter
	MessagesMerged    prometheus.Counter
	SpeakersAllocated prometheus.Counter

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter

	// Presentation feed metrics
	FeedClientsActive prometheus.Gauge
	FeedBroadcasts    prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Token provider metrics
	TokenIssueTotal   *prometheus.CounterVec
	TokenIssueLatency prometheus.Histogram
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active recording sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of recording sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		SessionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Total number of sessions ended by a channel error",
		}, []string{"provider"}),

		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_events_total",
			Help:      "Total recognition events received, by kind",
		}, []string{"kind"}),

		SegmentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_ingested_total",
			Help:      "Total transcript segments ingested by the assembler",
		}),
		SegmentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_skipped_total",
			Help:      "Total empty or whitespace-only segments dropped",
		}),
		MessagesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Total new transcript messages appended",
		}),
		MessagesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_merged_total",
			Help:      "Total segments merged into an existing message",
		}),
		SpeakersAllocated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speakers_allocated_total",
			Help:      "Total distinct speakers that received a display color",
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received from clients",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received from clients",
		}),

		FeedClientsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients_active",
			Help:      "Number of connected presentation feed clients",
		}),
		FeedBroadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_broadcasts_total",
			Help:      "Total transcript updates broadcast to feed clients",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		TokenIssueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_issue_total",
			Help:      "Total session credential requests, by outcome",
		}, []string{"status"}),
		TokenIssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_issue_latency_seconds",
			Help:      "Latency of session credential issuance in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

// RecordSessionStart records a new recording session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionError records a session killed by a channel error.
func (m *Metrics) RecordSessionError(provider string) {
	m.SessionErrors.WithLabelValues(provider).Inc()
}

// RecordEvent records one recognition event by kind.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsReceived.WithLabelValues(kind).Inc()
}

// RecordIngest records the outcome of one assembler ingest call.
func (m *Metrics) RecordIngest(appended, merged, skipped, newSpeakers int) {
	m.SegmentsIngested.Add(float64(appended + merged))
	m.SegmentsSkipped.Add(float64(skipped))
	m.MessagesAppended.Add(float64(appended))
	m.MessagesMerged.Add(float64(merged))
	m.SpeakersAllocated.Add(float64(newSpeakers))
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordFeedClientConnect records a feed client connecting.
func (m *Metrics) RecordFeedClientConnect() {
	m.FeedClientsActive.Inc()
}

// RecordFeedClientDisconnect records a feed client disconnecting.
func (m *Metrics) RecordFeedClientDisconnect() {
	m.FeedClientsActive.Dec()
}

// RecordFeedBroadcast records one update fanned out to feed clients.
func (m *Metrics) RecordFeedBroadcast() {
	m.FeedBroadcasts.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordTokenIssue records a session credential request.
func (m *Metrics) RecordTokenIssue(status string, latencySeconds float64) {
	m.TokenIssueTotal.WithLabelValues(status).Inc()
	m.TokenIssueLatency.Observe(latencySeconds)
}
