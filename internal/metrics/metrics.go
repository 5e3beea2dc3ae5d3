// Package metrics exposes Prometheus counters for the parking domain and
// the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK        = "ok"
	ResultConflict  = "conflict"
	ResultForbidden = "forbidden"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

// Collector records domain and HTTP metrics into a Prometheus registry.
type Collector struct {
	reservations  *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	published     prometheus.Counter
	deleted       prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkall_reservations_total",
			Help: "Reservation attempts by result.",
		}, []string{"result"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkall_cancellations_total",
			Help: "Reservation cancellation attempts by result.",
		}, []string{"result"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkall_spots_published_total",
			Help: "Parking spots published.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkall_spots_deleted_total",
			Help: "Parking spots deleted.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkall_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parkall_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.reservations,
		c.cancellations,
		c.published,
		c.deleted,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordReservation(result string)  { c.reservations.WithLabelValues(result).Inc() }
func (c *Collector) RecordCancellation(result string) { c.cancellations.WithLabelValues(result).Inc() }
func (c *Collector) RecordPublished()                 { c.published.Inc() }
func (c *Collector) RecordDeleted()                   { c.deleted.Inc() }

// RecordHTTPRequest records one served request.  route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
