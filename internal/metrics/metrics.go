// Package metrics exposes Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// PriceUpdates counts oracle price writes by result
	// (ok, low_confidence, deviation, invalid, stale_feed, feed_error).
	PriceUpdates *prometheus.CounterVec

	// Assessments counts position risk assessments by result (ok, error).
	Assessments *prometheus.CounterVec

	// PositionAlerts counts at-risk position alerts raised.
	PositionAlerts prometheus.Counter

	// ThresholdBreaches counts failed threshold checks.
	ThresholdBreaches prometheus.Counter

	// EmergencyStops counts emergency stop signals.
	EmergencyStops prometheus.Counter

	// GlobalRiskScore tracks the last computed global risk score in basis points.
	GlobalRiskScore prometheus.Gauge

	// SupportedTokens tracks the size of the oracle's active token set.
	SupportedTokens prometheus.Gauge
}

// New creates the engine collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PriceUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskcore_price_updates_total",
			Help: "Total oracle price updates by result",
		}, []string{"result"}),
		Assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskcore_position_assessments_total",
			Help: "Total position risk assessments by result",
		}, []string{"result"}),
		PositionAlerts: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskcore_position_alerts_total",
			Help: "Total at-risk position alerts raised",
		}),
		ThresholdBreaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskcore_threshold_breaches_total",
			Help: "Total risk threshold checks that failed",
		}),
		EmergencyStops: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskcore_emergency_stops_total",
			Help: "Total emergency stop signals emitted",
		}),
		GlobalRiskScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskcore_global_risk_score_bp",
			Help: "Last computed global risk score in basis points",
		}),
		SupportedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskcore_supported_tokens",
			Help: "Number of active tokens registered with the oracle",
		}),
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
