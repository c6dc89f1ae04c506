// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bidagent"

// Metrics holds all metrics for the bidding agent
type Metrics struct {
	registry *prometheus.Registry

	// Message metrics
	MessagesReceived *prometheus.CounterVec
	ReportsApplied   *prometheus.CounterVec

	// Daily cycle metrics
	Ticks             prometheus.Counter
	Day               prometheus.Gauge
	SpikesFired       prometheus.Counter
	RecentConversions prometheus.Gauge
	CapacityModifier  prometheus.Gauge
	FinalBid          *prometheus.HistogramVec

	// Publish metrics
	BundlesPublished prometheus.Counter
	PublishFailures  prometheus.Counter
	JournalFailures  prometheus.Counter
}

// NewMetrics creates a metrics instance on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.registry = reg
	return m
}

// NewMetricsWith registers every metric with reg
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "messages_received_total",
			Help:      "Total number of simulator messages received by type",
		}, []string{"type"}),
		ReportsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "reports_applied_total",
			Help:      "Total number of reports folded into history by kind",
		}, []string{"kind"}),

		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "ticks_total",
			Help:      "Total number of daily bidding cycles run",
		}),
		Day: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "day",
			Help:      "Current simulation day",
		}),
		SpikesFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spike",
			Name:      "fired_total",
			Help:      "Total number of rising-edge spikes detected",
		}),
		RecentConversions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "recent_conversions",
			Help:      "Conversions inside the distribution window",
		}),
		CapacityModifier: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "capacity_modifier",
			Help:      "Current capacity throttle applied to every bid",
		}),
		FinalBid: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "final_bid",
			Help:      "Final per-query bids by regime",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"regime"}),

		BundlesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "bundles_published_total",
			Help:      "Total number of bid bundles published",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "publish_failures_total",
			Help:      "Total number of bid bundles that failed to publish",
		}),
		JournalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "failures_total",
			Help:      "Total number of journal writes that failed",
		}),
	}
}

// GetGatherer returns the prometheus gatherer for metrics export
func (m *Metrics) GetGatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}
