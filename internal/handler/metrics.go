package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	appendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourledger_ledger_appends_total",
		Help: "Total ledger records appended by record type.",
	}, []string{"type"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourledger_verifications_total",
		Help: "Total verification lookups by record type and result.",
	}, []string{"type", "result"})

	chainValid = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tourledger_chain_valid",
		Help: "1 if the last integrity check of the given scope passed, 0 otherwise.",
	}, []string{"scope"})

	healthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourledger_health_checks_total",
		Help: "Total integrity audit probes by probe and result.",
	}, []string{"probe", "result"})

	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourledger_webhook_deliveries_total",
		Help: "Total webhook delivery attempts by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAppend records a ledger append of the given record type.
func RecordAppend(recordType string) {
	appendsTotal.WithLabelValues(recordType).Inc()
}

// RecordVerification records a verification lookup outcome:
// "verified", "not_found", "invalid" or "error".
func RecordVerification(recordType, result string) {
	verificationsTotal.WithLabelValues(recordType, result).Inc()
}

// SetChainValid records the outcome of an integrity check for scope ("memory" or "store").
func SetChainValid(scope string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	chainValid.WithLabelValues(scope).Set(v)
}

// RecordHealthCheck records an integrity audit probe result.
func RecordHealthCheck(probe string, success bool) {
	if success {
		healthChecksTotal.WithLabelValues(probe, "success").Inc()
	} else {
		healthChecksTotal.WithLabelValues(probe, "failure").Inc()
	}
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		webhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		webhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
