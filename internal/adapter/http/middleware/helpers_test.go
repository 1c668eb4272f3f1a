package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// testMetrics is registered once against a private registry.
var testMetrics = func() *metrics.Metrics {
	registry := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return metrics.New()
}()
