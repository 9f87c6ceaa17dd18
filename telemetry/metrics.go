// Package telemetry provides Prometheus metrics and optional OpenTelemetry tracing.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PostsPublished  prometheus.Counter
	PostsFailed     prometheus.Counter
	PostsDropped    prometheus.Counter
	ChatLines       prometheus.Counter
	ChatMatched     prometheus.Counter
	ChatReconnects  prometheus.Counter
	TokenRefreshes  prometheus.Counter
	PollCycles      prometheus.Counter
	SummariesPosted prometheus.Counter

	// Gauges
	QueueDepthGauge    prometheus.Gauge
	SessionActiveGauge prometheus.Gauge // 1=live session tracked, 0=offline
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PostsPublished = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_posts_published_total", Help: "Posts successfully published to X"})
		PostsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_posts_failed_total", Help: "Posts that failed to publish and were dropped"})
		PostsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_posts_dropped_total", Help: "Posts dropped because the queue was full"})
		ChatLines = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_chat_lines_total", Help: "Raw IRC lines received"})
		ChatMatched = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_chat_matched_total", Help: "Chat messages that passed the channel+author filter"})
		ChatReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_chat_reconnects_total", Help: "IRC reconnect attempts"})
		TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_token_refreshes_total", Help: "Twitch token refresh requests"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_poll_cycles_total", Help: "Stream monitor poll iterations"})
		SummariesPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "herald_summaries_posted_total", Help: "Session summaries enqueued for publishing"})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "herald_publish_queue_depth", Help: "Jobs currently buffered in the publish queue"})
		SessionActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "herald_session_active", Help: "Whether a live stream session is being tracked"})
	})
}

// SetQueueDepth records the current publish queue depth.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetSessionActive flips the live-session gauge.
func SetSessionActive(active bool) {
	if SessionActiveGauge == nil {
		return
	}
	if active {
		SessionActiveGauge.Set(1)
	} else {
		SessionActiveGauge.Set(0)
	}
}
