package muxhandlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitalvas/waypoint/mux"
)

// unmatchedRoute is the route label of requests that matched no route. Using
// the raw path instead would give every scanner probe its own series.
const unmatchedRoute = "unmatched"

// MetricsConfig configures the Metrics middleware behaviour.
type MetricsConfig struct {
	// Registerer receives the collectors. When nil,
	// prometheus.DefaultRegisterer is used.
	Registerer prometheus.Registerer

	// Namespace prefixes the metric names.
	Namespace string

	// Buckets are the request duration histogram buckets in seconds.
	// Defaults to prometheus.DefBuckets.
	Buckets []float64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Metrics holds the collectors updated by MetricsMiddleware.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	now      func() time.Time
}

// NewMetrics creates and registers the request collectors:
//
//	http_requests_total{method,route,status}
//	http_request_duration_seconds{method,route}
//
// The route label is the declarative route path, never the request path.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time from request start until the response was sent.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		now: cfg.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}

	return m, nil
}

// Middleware returns the terminated middleware that records each request.
func (m *Metrics) Middleware() mux.MiddlewareFunc {
	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		route := unmatchedRoute
		if r := c.Route(); r != nil {
			route = r.Path()
		}

		status := 0
		if res != nil {
			status = res.StatusCode()
		}

		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(m.now().Sub(c.Started()).Seconds())

		return next(c, res)
	}
}

// register registers c, or returns the equal collector that is already
// registered so several routers can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	return c, err
}
