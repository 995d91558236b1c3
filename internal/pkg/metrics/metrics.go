package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainboard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed by the status server",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trainboard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "path"})

	// Location resolution
	LocationResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainboard",
		Subsystem: "location",
		Name:      "resolutions_total",
		Help:      "Location resolutions by winning source",
	}, []string{"source"})

	DeviceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainboard",
		Subsystem: "location",
		Name:      "device_failures_total",
		Help:      "Device geolocation failures by reason",
	}, []string{"reason"})

	// Upstream calls
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trainboard",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the station, arrival and IP geolocation services",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainboard",
		Subsystem: "upstream",
		Name:      "errors_total",
		Help:      "Failed calls to upstream services",
	}, []string{"service"})

	// Arrival polling
	ArrivalFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainboard",
		Subsystem: "arrivals",
		Name:      "fetches_total",
		Help:      "Arrival fetches by outcome (applied, stale, error, skipped)",
	}, []string{"outcome"})

	StationsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainboard",
		Subsystem: "stations",
		Name:      "current",
		Help:      "Number of stations in the current search result",
	})

	// Countdown
	RefreshEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainboard",
		Subsystem: "countdown",
		Name:      "refresh_epoch",
		Help:      "Completed countdown cycles",
	})

	SecondsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainboard",
		Subsystem: "countdown",
		Name:      "seconds_remaining",
		Help:      "Seconds until the next arrivals refresh",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainboard",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// ObserveUpstream records the duration and outcome of an upstream call started at start.
func ObserveUpstream(service string, start time.Time, err error) {
	UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(service).Inc()
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
