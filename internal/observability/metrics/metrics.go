// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_call_relay"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Call metrics
	CallsTotal     prometheus.Counter
	CallsActive    prometheus.Gauge
	CallsCompleted prometheus.Counter
	CallsFailed    prometheus.Counter
	CallDuration   prometheus.Histogram

	// Audio metrics
	FramesInbound  prometheus.Counter
	FramesOutbound prometheus.Counter
	FramesDropped  *prometheus.CounterVec

	// Transcript metrics
	TranscriptLines *prometheus.CounterVec

	// Tool metrics
	ToolCallsTotal  *prometheus.CounterVec
	ToolCallErrors  *prometheus.CounterVec
	ToolCallLatency prometheus.Histogram

	// Conversation channel metrics
	ChannelConnects      prometheus.Counter
	ChannelConnectErrors prometheus.Counter
	ChannelReconnects    prometheus.Counter
	ChannelDropsTerminal prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Persistence metrics
	PersistTotal  prometheus.Counter
	PersistErrors prometheus.Counter
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of call sessions started",
		}),
		CallsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of currently active call sessions",
		}),
		CallsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_completed_total",
			Help:      "Total number of call sessions finalized successfully",
		}),
		CallsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_failed_total",
			Help:      "Total number of call sessions that failed during setup or relay",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of call sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		FramesInbound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_inbound_total",
			Help:      "Total media frames received from the telephony leg",
		}),
		FramesOutbound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_outbound_total",
			Help:      "Total media frames written back to the telephony leg",
		}),
		FramesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total media frames dropped",
		}, []string{"reason"}),

		TranscriptLines: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_lines_total",
			Help:      "Total transcript lines accumulated",
		}, []string{"speaker"}),

		ToolCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total tool calls dispatched",
		}, []string{"tool"}),
		ToolCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_call_errors_total",
			Help:      "Total tool calls that returned an error result",
		}, []string{"tool"}),
		ToolCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_latency_seconds",
			Help:      "Tool call execution latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		ChannelConnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_connects_total",
			Help:      "Total successful conversation channel connects",
		}),
		ChannelConnectErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_connect_errors_total",
			Help:      "Total conversation channel connect failures",
		}),
		ChannelReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_reconnects_total",
			Help:      "Total conversation channel reconnect attempts",
		}),
		ChannelDropsTerminal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_terminal_drops_total",
			Help:      "Total conversation channels lost after exhausting reconnects",
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

		PersistTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_outcome_persist_total",
			Help:      "Total call outcome persistence attempts",
		}),
		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_outcome_persist_errors_total",
			Help:      "Total call outcome persistence failures",
		}),
	}
}

// RecordCallStart records a new call session starting.
func (m *Metrics) RecordCallStart() {
	m.CallsTotal.Inc()
	m.CallsActive.Inc()
}

// RecordCallEnd records a call session ending.
func (m *Metrics) RecordCallEnd(success bool, durationSeconds float64) {
	m.CallsActive.Dec()
	m.CallDuration.Observe(durationSeconds)
	if success {
		m.CallsCompleted.Inc()
	} else {
		m.CallsFailed.Inc()
	}
}

// RecordFrameInbound records a media frame received from the telephony leg.
func (m *Metrics) RecordFrameInbound() {
	m.FramesInbound.Inc()
}

// RecordFrameOutbound records a media frame written to the telephony leg.
func (m *Metrics) RecordFrameOutbound() {
	m.FramesOutbound.Inc()
}

// RecordFrameDropped records a dropped media frame.
func (m *Metrics) RecordFrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordTranscriptLine records a transcript line by speaker.
func (m *Metrics) RecordTranscriptLine(speaker string) {
	m.TranscriptLines.WithLabelValues(speaker).Inc()
}

// RecordToolCall records a tool dispatch and its result.
func (m *Metrics) RecordToolCall(tool string, success bool, latencySeconds float64) {
	m.ToolCallsTotal.WithLabelValues(tool).Inc()
	m.ToolCallLatency.Observe(latencySeconds)
	if !success {
		m.ToolCallErrors.WithLabelValues(tool).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordPersist records a call outcome persistence attempt.
func (m *Metrics) RecordPersist(err error) {
	m.PersistTotal.Inc()
	if err != nil {
		m.PersistErrors.Inc()
	}
}
