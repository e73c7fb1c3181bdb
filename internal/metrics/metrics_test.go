package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "GET /api/v1.0/{start}", "200"))

	Observe("GET", "GET /api/v1.0/{start}", http.StatusOK, 15*time.Millisecond)
	Observe("GET", "GET /api/v1.0/{start}", http.StatusOK, 5*time.Millisecond)

	after := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "GET /api/v1.0/{start}", "200"))
	assert.Equal(t, before+2, after)
}

func TestObserve_EmptyRoute(t *testing.T) {
	before := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "unmatched", "404"))
	Observe("GET", "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandler_Exposition(t *testing.T) {
	Observe("GET", "GET /healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "climate_http_requests_total")
	assert.Contains(t, string(body), "climate_http_request_duration_seconds_bucket")
}
