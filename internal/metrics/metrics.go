package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callscribe"

// Metrics owns its registry so tests and multiple instances never collide on the default one.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	AudioBytesIngested     prometheus.Counter
	AudioFlushes           prometheus.Counter
	TranscriptionRequests  prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionEmpty     prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	SessionTransitions     *prometheus.CounterVec
	JoinFailures           prometheus.Counter
	WebhookNotifications   *prometheus.CounterVec
	EventsPublished        *prometheus.CounterVec
	HTTPRequests           *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	activeSubscribersGauge prometheus.GaugeFunc
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AudioBytesIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_ingested_total",
			Help:      "Total PCM bytes accepted by the audio pipeline",
		}),
		AudioFlushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_flushes_total",
			Help:      "Total call-level audio buffer flushes",
		}),
		TranscriptionRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_requests_total",
			Help:      "Total speech-to-text requests sent",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Total speech-to-text requests that failed",
		}),
		TranscriptionEmpty: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_empty_total",
			Help:      "Total speech-to-text results discarded as empty",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of speech-to-text requests",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions applied, by target status",
		}, []string{"status"}),
		JoinFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_failures_total",
			Help:      "Join attempts that ended in FAILED",
		}),
		WebhookNotifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_notifications_total",
			Help:      "Inbound provider notifications, by kind and outcome",
		}, []string{"kind", "outcome"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to the broadcast gateway, by type",
		}, []string{"type"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// TrackSubscribers exposes the gateway's live subscriber count as a gauge.
func (m *Metrics) TrackSubscribers(g *broadcast.Gateway) {
	if m == nil || m.activeSubscribersGauge != nil {
		return
	}
	m.activeSubscribersGauge = promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscribers",
		Help:      "Live event stream subscribers across all sessions",
	}, func() float64 {
		return float64(g.TotalSubscribers())
	})
}

// EventTap counts every event passing through the gateway.
func (m *Metrics) EventTap() broadcast.Tap {
	return broadcast.TapFunc(func(e broadcast.Event) {
		if m == nil {
			return
		}
		m.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordAudioBytes(n int) {
	if m == nil {
		return
	}
	m.AudioBytesIngested.Add(float64(n))
}

func (m *Metrics) RecordFlush() {
	if m == nil {
		return
	}
	m.AudioFlushes.Inc()
}

// RecordTranscription records one speech-to-text call. empty is only meaningful when err is nil.
func (m *Metrics) RecordTranscription(d time.Duration, err error, empty bool) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
	switch {
	case err != nil:
		m.TranscriptionFailures.Inc()
	case empty:
		m.TranscriptionEmpty.Inc()
	}
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordJoinFailure() {
	if m == nil {
		return
	}
	m.JoinFailures.Inc()
}

func (m *Metrics) RecordWebhook(kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookNotifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
