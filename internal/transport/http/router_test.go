package httptransport_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/auction"
	"custodia/internal/compliance"
	"custodia/internal/escrow"
	"custodia/internal/jwttoken"
	"custodia/internal/ledger"
	"custodia/internal/platform/middleware"
	"custodia/internal/registry"
	httptransport "custodia/internal/transport/http"
)

func newRouter(t *testing.T, auth func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	tokens := ledger.NewTokenLedger()
	complianceSvc := compliance.NewService(compliance.NewInMemoryStore())
	return httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Compliance: complianceSvc,
		Registry:   registry.NewService(registry.NewInMemoryStore(), tokens, complianceSvc),
		Escrow:     escrow.NewService(escrow.NewInMemoryStore(), tokens),
		Auction:    auction.NewService(auction.NewInMemoryStore(), tokens),
		Auth:       auth,
	})
}

func TestHealthAndMetricsBypassAuth(t *testing.T) {
	jwtSvc := jwttoken.NewService("test-key", "custodia", "custodia-api")
	router := newRouter(t, middleware.RequireAuth(jwtSvc, slog.New(slog.DiscardHandler)))

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuthGatesProtectedRoutes(t *testing.T) {
	jwtSvc := jwttoken.NewService("test-key", "custodia", "custodia-api")
	router := newRouter(t, middleware.RequireAuth(jwtSvc, slog.New(slog.DiscardHandler)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/assets", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtSvc.GenerateToken("operator-1", time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	router := newRouter(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecordEndpointNotFound(t *testing.T) {
	router := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/records/unknown-address", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
