package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager holds the service's Prometheus collectors. A nil *MetricsManager
// is valid and records nothing, so components can be built without metrics.
type MetricsManager struct {
	Registry *prometheus.Registry

	ListingsCreatedTotal   prometheus.Counter
	ImagesUploadedTotal    prometheus.Counter
	ImagesCollectedTotal   prometheus.Counter
	ProjectionRepairsTotal prometheus.Counter
	FavoriteTogglesTotal   *prometheus.CounterVec
	SearchRequestsTotal    *prometheus.CounterVec
	SemanticFailuresTotal  prometheus.Counter
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestLatency     *prometheus.HistogramVec
}

// NewMetricsManager creates and registers all collectors on a private registry.
func NewMetricsManager(serviceName string) *MetricsManager {
	namespace := sanitize(serviceName)
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		ListingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Listings created (idempotent reuses excluded).",
		}),
		ImagesUploadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_uploaded_total",
			Help:      "Image files written to the blob store.",
		}),
		ImagesCollectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_orphan_collected_total",
			Help:      "Image records deleted after their last link was removed.",
		}),
		ProjectionRepairsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_projection_repairs_total",
			Help:      "Listings whose haveImage/firstImagePath drifted from their links and were repaired.",
		}),
		FavoriteTogglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorite_toggles_total",
			Help:      "Favorite toggles by direction.",
		}, []string{"direction"}),
		SearchRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by kind (filter, semantic, owner, favorites).",
		}, []string{"kind"}),
		SemanticFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semantic_search_failures_total",
			Help:      "Semantic search calls that failed and degraded to zero results.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.ListingsCreatedTotal,
		m.ImagesUploadedTotal,
		m.ImagesCollectedTotal,
		m.ProjectionRepairsTotal,
		m.FavoriteTogglesTotal,
		m.SearchRequestsTotal,
		m.SemanticFailuresTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *MetricsManager) ListingCreated() {
	if m != nil {
		m.ListingsCreatedTotal.Inc()
	}
}

func (m *MetricsManager) ImagesUploaded(n int) {
	if m != nil {
		m.ImagesUploadedTotal.Add(float64(n))
	}
}

func (m *MetricsManager) ImageCollected() {
	if m != nil {
		m.ImagesCollectedTotal.Inc()
	}
}

func (m *MetricsManager) ProjectionRepaired() {
	if m != nil {
		m.ProjectionRepairsTotal.Inc()
	}
}

func (m *MetricsManager) FavoriteToggled(on bool) {
	if m == nil {
		return
	}
	direction := "remove"
	if on {
		direction = "add"
	}
	m.FavoriteTogglesTotal.WithLabelValues(direction).Inc()
}

func (m *MetricsManager) SearchServed(kind string) {
	if m != nil {
		m.SearchRequestsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *MetricsManager) SemanticFailed() {
	if m != nil {
		m.SemanticFailuresTotal.Inc()
	}
}

// ObserveHTTP records one served request. route is the matched route
// pattern, never the raw path.
func (m *MetricsManager) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// NewMetricsServer returns a server exposing registry on :port/metrics.
func NewMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
