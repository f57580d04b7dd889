package websocket

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the relay counters.
type MetricsSnapshot struct {
	TotalBroadcasts     int64         `json:"totalBroadcasts"`
	TotalDelivered      int64         `json:"totalDelivered"`
	TotalDropped        int64         `json:"totalDropped"`
	PeakBroadcastTime   time.Duration `json:"peakBroadcastTime"`
	TotalSessions       int64         `json:"totalSessions"`
	RejectedSessions    int64         `json:"rejectedSessions"`
	RateLimitedMessages int64         `json:"rateLimitedMessages"`
	ActiveConnections   int           `json:"activeConnections"`
}

// ConnectionMetrics aggregates broadcast and session counters.
type ConnectionMetrics struct {
	mu sync.Mutex
	s  MetricsSnapshot
}

func NewConnectionMetrics() *ConnectionMetrics {
	return &ConnectionMetrics{}
}

func (cm *ConnectionMetrics) RecordBroadcast(sent, failed int, took time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.s.TotalBroadcasts++
	cm.s.TotalDelivered += int64(sent)
	cm.s.TotalDropped += int64(failed)
	if took > cm.s.PeakBroadcastTime {
		cm.s.PeakBroadcastTime = took
	}
}

func (cm *ConnectionMetrics) RecordSession(accepted bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if accepted {
		cm.s.TotalSessions++
	} else {
		cm.s.RejectedSessions++
	}
}

func (cm *ConnectionMetrics) RecordRateLimited() {
	cm.mu.Lock()
	cm.s.RateLimitedMessages++
	cm.mu.Unlock()
}

func (cm *ConnectionMetrics) Snapshot() MetricsSnapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.s
}
