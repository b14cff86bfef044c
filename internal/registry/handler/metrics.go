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
	acpAgentsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acp_agents_total",
		Help: "Registered agents by status.",
	}, []string{"status"})

	acpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acp_requests_total",
		Help: "HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	acpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acp_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	acpDeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acp_deployments_total",
		Help: "Agent deployment attempts by result.",
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
			path = c.Request.URL.Path
		}

		acpRequestsTotal.WithLabelValues(method, path, status).Inc()
		acpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordDeployment records a deployment attempt result.
func RecordDeployment(success bool) {
	if success {
		acpDeploymentsTotal.WithLabelValues("success").Inc()
	} else {
		acpDeploymentsTotal.WithLabelValues("failure").Inc()
	}
}

// SetAgentsGauge sets the agent count gauge for a given status.
func SetAgentsGauge(status string, count float64) {
	acpAgentsTotal.WithLabelValues(status).Set(count)
}
