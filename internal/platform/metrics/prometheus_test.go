package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsManager_Counters(t *testing.T) {
	m := NewMetricsManager("annonce-service")

	m.ListingCreated()
	m.ImagesUploaded(3)
	m.FavoriteToggled(true)
	m.FavoriteToggled(false)
	m.FavoriteToggled(false)
	m.SearchServed("semantic")
	m.SemanticFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsCreatedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImagesUploadedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FavoriteTogglesTotal.WithLabelValues("add")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FavoriteTogglesTotal.WithLabelValues("remove")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("semantic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SemanticFailuresTotal))
}

func TestMetricsManager_NilIsNoop(t *testing.T) {
	var m *MetricsManager
	assert.NotPanics(t, func() {
		m.ListingCreated()
		m.ImagesUploaded(1)
		m.ImageCollected()
		m.ProjectionRepaired()
		m.FavoriteToggled(true)
		m.SearchServed("filter")
		m.SemanticFailed()
		m.ObserveHTTP("GET", "/healthz", "200", time.Millisecond)
	})
}

func TestMetricsServer_ExposesNamespacedSeries(t *testing.T) {
	m := NewMetricsManager("annonce-service")
	m.ObserveHTTP("GET", "/api/annonces", "200", 10*time.Millisecond)

	srv := NewMetricsServer("0", m.Registry)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `annonce_service_http_requests_total{method="GET",route="/api/annonces",status="200"} 1`))
	assert.Contains(t, body, "annonce_service_listings_created_total")
}
