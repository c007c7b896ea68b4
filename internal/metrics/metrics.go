// Package metrics provides Prometheus instrumentation for the offer engine.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OfferCommands counts registry commands by completion result.
	// command: place, edit_start, edit_publish, remove; result: ok, error.
	OfferCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_offer_commands_total",
		Help: "Offer registry commands by outcome",
	}, []string{"command", "result"})

	// OfferRejections counts operations refused before reaching the registry.
	OfferRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_offer_rejections_total",
		Help: "Offer operations rejected by precondition checks",
	}, []string{"operation", "kind"})

	// OfferQueries counts list and lookup calls.
	OfferQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_offer_queries_total",
		Help: "Offer book queries",
	}, []string{"query"})

	// OfferBookSize tracks the number of offers published in the book.
	OfferBookSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atmx_offer_book_size",
		Help: "Number of offers currently in the offer book",
	})

	// OpenOffers tracks the local user's open offers.
	OpenOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atmx_open_offers",
		Help: "Number of local open offers",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atmx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// EventsPublished counts offer events by sink and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_offer_events_total",
		Help: "Offer events delivered to sinks",
	}, []string{"sink", "result"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atmx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps offer ids out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: %T does not support hijacking", w.ResponseWriter)
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
