package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes hub counters to Prometheus. Values are read from the hub
// on every scrape.
type Collector struct {
	hub *Hub

	activeConnections *prometheus.Desc
	broadcasts        *prometheus.Desc
	delivered         *prometheus.Desc
	dropped           *prometheus.Desc
	sessions          *prometheus.Desc
	rejected          *prometheus.Desc
	rateLimited       *prometheus.Desc
}

func NewCollector(hub *Hub) *Collector {
	return &Collector{
		hub:               hub,
		activeConnections: prometheus.NewDesc("chat_relay_active_connections", "Live registered connections.", nil, nil),
		broadcasts:        prometheus.NewDesc("chat_relay_broadcasts_total", "Fan-outs performed.", nil, nil),
		delivered:         prometheus.NewDesc("chat_relay_deliveries_total", "Events handed to connections.", nil, nil),
		dropped:           prometheus.NewDesc("chat_relay_dropped_deliveries_total", "Events a connection refused.", nil, nil),
		sessions:          prometheus.NewDesc("chat_relay_sessions_total", "Sessions that reached the active state.", nil, nil),
		rejected:          prometheus.NewDesc("chat_relay_rejected_sessions_total", "Sessions closed before becoming active.", nil, nil),
		rateLimited:       prometheus.NewDesc("chat_relay_rate_limited_messages_total", "Chat messages refused by the rate limiter.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeConnections
	ch <- c.broadcasts
	ch <- c.delivered
	ch <- c.dropped
	ch <- c.sessions
	ch <- c.rejected
	ch <- c.rateLimited
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.hub.Metrics()
	ch <- prometheus.MustNewConstMetric(c.activeConnections, prometheus.GaugeValue, float64(s.ActiveConnections))
	ch <- prometheus.MustNewConstMetric(c.broadcasts, prometheus.CounterValue, float64(s.TotalBroadcasts))
	ch <- prometheus.MustNewConstMetric(c.delivered, prometheus.CounterValue, float64(s.TotalDelivered))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.TotalDropped))
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.CounterValue, float64(s.TotalSessions))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.RejectedSessions))
	ch <- prometheus.MustNewConstMetric(c.rateLimited, prometheus.CounterValue, float64(s.RateLimitedMessages))
}
