package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiDuration     *prometheus.HistogramVec
	superseded      *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickethub_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickethub_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickethub_api_call_duration_seconds",
		Help:    "Duration of calls to the TicketHub API by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickethub_store_superseded_total",
		Help: "Fetch results discarded because a newer fetch was issued.",
	}, []string{"store"})
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickethub_guard_verdicts_total",
		Help: "Route guard verdicts by guard and status.",
	}, []string{"guard", "status"})
	registry.MustRegister(requests, duration, apiDuration, superseded, verdicts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiDuration:     apiDuration,
		superseded:      superseded,
		verdicts:        verdicts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPICall implements apiclient.CallObserver.
func (m *Metrics) ObserveAPICall(method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiDuration.WithLabelValues(method, status).Observe(elapsed.Seconds())
}

// FetchSuperseded implements store.Observer.
func (m *Metrics) FetchSuperseded(store string) {
	if m == nil {
		return
	}
	m.superseded.WithLabelValues(store).Inc()
}

// ObserveVerdict implements access.VerdictRecorder.
func (m *Metrics) ObserveVerdict(guard, status string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(guard, status).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
