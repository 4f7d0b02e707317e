// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_translation"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recognition session metrics
	SessionsTotal   prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Capture metrics
	AudioBytesCaptured  prometheus.Counter
	AudioChunksCaptured prometheus.Counter
	AudioDeliveries     prometheus.Counter
	CaptureQueueDepth   prometheus.Gauge

	// Transcript metrics
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter

	// Utterance pipeline metrics
	UtterancesProduced prometheus.Counter
	UtterancesPlayed   prometheus.Counter
	PlaybackQueueDepth prometheus.Gauge
	PlaybackDuration   prometheus.Histogram

	// Backend call metrics (speech, translate, texttospeech)
	BackendLatency *prometheus.HistogramVec
	BackendErrors  *prometheus.CounterVec
	BackendRetries *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recognition session windows opened",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Recognition session windows ended, by reason",
		}, []string{"reason"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of recognition session windows",
			Buckets:   []float64{1, 5, 10, 30, 55, 60, 120},
		}),

		AudioBytesCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_captured_total",
			Help:      "Total PCM bytes delivered by the capture device",
		}),
		AudioChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_captured_total",
			Help:      "Total capture chunks enqueued",
		}),
		AudioDeliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_deliveries_total",
			Help:      "Coalesced audio units sent to the recognizer",
		}),
		CaptureQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_queue_depth",
			Help:      "Chunks waiting in the capture buffer",
		}),

		TranscriptsPartial: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of interim transcripts received",
		}),
		TranscriptsFinal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts received",
		}),

		UtterancesProduced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_produced_total",
			Help:      "Utterances translated, synthesized and queued for playback",
		}),
		UtterancesPlayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_played_total",
			Help:      "Synthesized clips that finished playing",
		}),
		PlaybackQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_depth",
			Help:      "Clips waiting for playback",
		}),
		PlaybackDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_duration_seconds",
			Help:      "Length of played clips",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20},
		}),

		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "Latency of calls to the recognition, translation and synthesis backends",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"backend", "method"}),
		BackendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total number of failed backend calls",
		}, []string{"backend", "code"}),
		BackendRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Total number of retried backend calls",
		}, []string{"backend"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new recognition session window.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
}

// RecordSessionEnd records why and after how long a session window ended.
func (m *Metrics) RecordSessionEnd(reason string, durationSeconds float64) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordChunkCaptured records one chunk pushed by the capture device.
// Safe to call from the real-time audio callback.
func (m *Metrics) RecordChunkCaptured(bytes int) {
	m.AudioBytesCaptured.Add(float64(bytes))
	m.AudioChunksCaptured.Inc()
}

// RecordDelivery records a coalesced unit handed to the recognizer and the
// queue depth left behind.
func (m *Metrics) RecordDelivery(queueDepth int) {
	m.AudioDeliveries.Inc()
	m.CaptureQueueDepth.Set(float64(queueDepth))
}

// RecordPartialTranscript records an interim transcript.
func (m *Metrics) RecordPartialTranscript() {
	m.TranscriptsPartial.Inc()
}

// RecordFinalTranscript records a final transcript.
func (m *Metrics) RecordFinalTranscript() {
	m.TranscriptsFinal.Inc()
}

// RecordUtteranceProduced records a clip queued for playback.
func (m *Metrics) RecordUtteranceProduced(queueDepth int) {
	m.UtterancesProduced.Inc()
	m.PlaybackQueueDepth.Set(float64(queueDepth))
}

// RecordUtterancePlayed records a clip that finished playing.
func (m *Metrics) RecordUtterancePlayed(durationSeconds float64, queueDepth int) {
	m.UtterancesPlayed.Inc()
	m.PlaybackDuration.Observe(durationSeconds)
	m.PlaybackQueueDepth.Set(float64(queueDepth))
}

// RecordBackendCall records the latency and outcome of a backend call.
// code is "OK" for success.
func (m *Metrics) RecordBackendCall(backend, method, code string, latencySeconds float64) {
	m.BackendLatency.WithLabelValues(backend, method).Observe(latencySeconds)
	if code != "OK" {
		m.BackendErrors.WithLabelValues(backend, code).Inc()
	}
}

// RecordBackendRetry records a retried backend call.
func (m *Metrics) RecordBackendRetry(backend string) {
	m.BackendRetries.WithLabelValues(backend).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
