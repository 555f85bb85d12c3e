package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/petatlas/internal/atlas"
)

const namespace = "petatlas"

// collector owns the server's Prometheus registry.
type collector struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	reloads       *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	districts     prometheus.Gauge
	facilities    prometheus.Gauge
	orphans       prometheus.Gauge
	unmatched     prometheus.Gauge
	diagnostics   *prometheus.GaugeVec
}

func newCollector() *collector {
	c := &collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Load cycles by result (ok, failed, throttled).",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of successful load cycles.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		districts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "districts",
			Help:      "Districts in the current snapshot.",
		}),
		facilities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "facilities",
			Help:      "Facilities in the current snapshot.",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_facilities",
			Help:      "Facilities whose district is not a known district.",
		}),
		unmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_rows",
			Help:      "Table rows whose key matched no district.",
		}),
		diagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "diagnostics",
			Help:      "Diagnostics of the current snapshot by kind.",
		}, []string{"kind"}),
	}
	c.registry.MustRegister(
		c.requests, c.latency, c.reloads, c.cycleDuration,
		c.districts, c.facilities, c.orphans, c.unmatched, c.diagnostics,
	)
	return c
}

// handler exposes the registry in the Prometheus text format.
func (c *collector) handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// observe records a snapshot that has just become current.
func (c *collector) observe(snap *atlas.Snapshot) {
	c.cycleDuration.Observe(snap.Duration.Seconds())
	c.districts.Set(float64(len(snap.Districts)))
	c.facilities.Set(float64(len(snap.Facilities)))
	c.orphans.Set(float64(snap.Categories.OrphanCount))
	c.unmatched.Set(float64(len(snap.Unmatched)))
	c.diagnostics.Reset()
	for kind, n := range snap.Diagnostics.Counts() {
		c.diagnostics.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// instrument counts requests by their matched route pattern.
func (c *collector) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
