// Package metrics provides Prometheus metrics for the codespace server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	sessionsActive  prometheus.Gauge
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	storeOps        *prometheus.CounterVec
	storeNodes      prometheus.Gauge
	wsMessages      *prometheus.CounterVec
}

// New registers the codespace collectors plus the Go and process
// collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codespace_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codespace_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		sessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "codespace_sessions_active",
				Help: "Number of open terminal sessions",
			},
		),
		commandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codespace_commands_total",
				Help: "Terminal commands executed",
			},
			[]string{"command", "outcome"},
		),
		commandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codespace_command_duration_seconds",
				Help:    "Terminal command duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"command"},
		),
		storeOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codespace_store_ops_total",
				Help: "File store operations by result",
			},
			[]string{"op", "result"},
		),
		storeNodes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "codespace_store_nodes",
				Help: "Number of files and directories in the store",
			},
		),
		wsMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codespace_ws_messages_total",
				Help: "WebSocket messages by direction",
			},
			[]string{"direction"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

// RecordCommand records one interpreter command.
func (m *Metrics) RecordCommand(command, outcome string, elapsed time.Duration) {
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// RecordStoreOp records a store mutation attempted through the API.
func (m *Metrics) RecordStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
}

// SetStoreNodes sets the number of nodes in the store.
func (m *Metrics) SetStoreNodes(n int) {
	m.storeNodes.Set(float64(n))
}

// RecordWSMessage records a WebSocket frame; direction is "in" or "out".
func (m *Metrics) RecordWSMessage(direction string) {
	m.wsMessages.WithLabelValues(direction).Inc()
}
