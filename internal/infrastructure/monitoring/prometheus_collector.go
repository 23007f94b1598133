package monitoring

import (
	"time"

	"streampulse/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	followTogglesTotal          prometheus.Counter
	notificationsCreatedTotal   prometheus.Counter
	notificationsDeliveredTotal prometheus.Counter
	emailsSentTotal             prometheus.Counter
	fanoutFailuresTotal         prometheus.Counter

	// Gauges
	liveChannelsTotal prometheus.Gauge
	sessionsConnected prometheus.Gauge

	// Histograms
	fanoutDuration prometheus.Histogram

	// Per-channel metrics
	channelFollowerCount *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		followTogglesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_follow_toggles_total",
			Help: "Total number of follow toggle operations",
		}),

		notificationsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_notifications_created_total",
			Help: "Total number of go-live notification rows created",
		}),

		notificationsDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_notifications_delivered_total",
			Help: "Total number of notifications delivered over the gateway",
		}),

		emailsSentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_emails_sent_total",
			Help: "Total number of go-live emails dispatched",
		}),

		fanoutFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_fanout_failures_total",
			Help: "Total number of per-follower fan-out failures",
		}),

		liveChannelsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_live_channels_total",
			Help: "Number of channels currently live",
		}),

		sessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_sessions_connected",
			Help: "Number of WebSocket sessions currently attached to the gateway",
		}),

		fanoutDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streampulse_fanout_duration_seconds",
			Help:    "Duration of go-live fan-out across all followers",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),

		channelFollowerCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streampulse_channel_follower_count",
			Help: "Number of followers per channel",
		}, []string{"channel"}),
	}
}

func (p *PrometheusCollector) RecordFollowToggle() {
	p.followTogglesTotal.Inc()
}

func (p *PrometheusCollector) RecordLiveStart() {
	p.liveChannelsTotal.Inc()
}

func (p *PrometheusCollector) RecordLiveStop() {
	p.liveChannelsTotal.Dec()
}

func (p *PrometheusCollector) RecordNotificationCreated() {
	p.notificationsCreatedTotal.Inc()
}

func (p *PrometheusCollector) RecordNotificationSent() {
	p.notificationsDeliveredTotal.Inc()
}

func (p *PrometheusCollector) RecordEmailSent() {
	p.emailsSentTotal.Inc()
}

func (p *PrometheusCollector) RecordFanoutFailure() {
	p.fanoutFailuresTotal.Inc()
}

func (p *PrometheusCollector) RecordFanoutDuration(duration time.Duration) {
	p.fanoutDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) SetSessionsConnected(count int) {
	p.sessionsConnected.Set(float64(count))
}

func (p *PrometheusCollector) SetChannelFollowerCount(channel domain.Username, count int) {
	p.channelFollowerCount.WithLabelValues(string(channel)).Set(float64(count))
}
