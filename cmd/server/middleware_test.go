package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/recipecost/internal/dbtest"
)

func TestRequestIDIsGeneratedOrEchoed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do("GET", "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecovererWritesInternalError(t *testing.T) {
	h := recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMetricsExposeRequestCounts(t *testing.T) {
	api := newTestAPI(t)

	api.do("GET", "/healthz", "")
	api.do("GET", "/products/999", "")

	rec := api.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `recipecost_http_requests_total{method="GET",route="/healthz",status="200"} 1`), body)
	assert.Contains(t, body, `status="404"`)
	assert.Contains(t, body, "recipecost_cost_compute_duration_seconds")
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	srv := newServer(dbtest.Open(t), nil)
	mux := srv.routes().(*chi.Mux)
	mux.Get("/explode", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/explode", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `recipecost_http_requests_total{method="GET",route="/explode",status="500"} 1`)
}
