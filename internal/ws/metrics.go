package ws

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	subscriberGauge    prometheus.Gauge
	broadcastsTotal    *prometheus.CounterVec
	droppedSubscribers *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		subscriberGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Currently connected push subscribers",
		})
		broadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Envelopes fanned out to subscribers",
		}, []string{"type"})
		droppedSubscribers = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "hub",
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers removed because a send failed",
		}, []string{"reason"})

		collectors := []prometheus.Collector{subscriberGauge, broadcastsTotal, droppedSubscribers}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case prometheus.Gauge:
						subscriberGauge = v
					case *prometheus.CounterVec:
						if collector == broadcastsTotal {
							broadcastsTotal = v
						} else {
							droppedSubscribers = v
						}
					}
				}
			}
		}
	})
}
