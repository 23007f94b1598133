package services

import "sync"

// MetricsObserver mirrors counter updates to an external sink, typically
// the Prometheus collector.
type MetricsObserver interface {
	RecordFollowToggle()
	RecordLiveStart()
	RecordLiveStop()
	RecordNotificationCreated()
	RecordNotificationSent()
	RecordEmailSent()
	RecordFanoutFailure()
}

// MetricsService keeps in-process counters for the notification pipeline.
// These counters back the stats API and tests; an optional observer mirrors
// them to the scrape endpoint.
type MetricsService struct {
	mu sync.RWMutex

	observer MetricsObserver

	followToggles        int64
	liveChannels         int64
	notificationsCreated int64
	notificationsSent    int64
	emailsSent           int64
	fanoutFailures       int64
}

func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// SetObserver attaches an external sink. Must be called before the service
// handles traffic.
func (m *MetricsService) SetObserver(observer MetricsObserver) {
	m.observer = observer
}

func (m *MetricsService) RecordFollowToggle() {
	m.mu.Lock()
	m.followToggles++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordFollowToggle()
	}
}

func (m *MetricsService) RecordLiveStart() {
	m.mu.Lock()
	m.liveChannels++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordLiveStart()
	}
}

func (m *MetricsService) RecordLiveStop() {
	m.mu.Lock()
	if m.liveChannels > 0 {
		m.liveChannels--
	}
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordLiveStop()
	}
}

func (m *MetricsService) RecordNotificationCreated() {
	m.mu.Lock()
	m.notificationsCreated++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordNotificationCreated()
	}
}

func (m *MetricsService) RecordNotificationSent() {
	m.mu.Lock()
	m.notificationsSent++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordNotificationSent()
	}
}

func (m *MetricsService) RecordEmailSent() {
	m.mu.Lock()
	m.emailsSent++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordEmailSent()
	}
}

func (m *MetricsService) RecordFanoutFailure() {
	m.mu.Lock()
	m.fanoutFailures++
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.RecordFanoutFailure()
	}
}

// Snapshot returns a copy of all counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		FollowToggles:        m.followToggles,
		LiveChannels:         m.liveChannels,
		NotificationsCreated: m.notificationsCreated,
		NotificationsSent:    m.notificationsSent,
		EmailsSent:           m.emailsSent,
		FanoutFailures:       m.fanoutFailures,
	}
}

type MetricsSnapshot struct {
	FollowToggles        int64 `json:"follow_toggles"`
	LiveChannels         int64 `json:"live_channels"`
	NotificationsCreated int64 `json:"notifications_created"`
	NotificationsSent    int64 `json:"notifications_sent"`
	EmailsSent           int64 `json:"emails_sent"`
	FanoutFailures       int64 `json:"fanout_failures"`
}
