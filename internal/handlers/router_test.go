package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func TestNewRouter_DefaultMounts(t *testing.T) {
	router := NewRouter()

	rr := serve(t, router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = serve(t, router, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)

	for _, path := range []string{"/api/v1/products", "/api/v1/orders", "/api/v1/orders/abc/cancel", "/api/v1/admin/orders"} {
		rr = serve(t, router, http.MethodGet, path)
		assert.Equal(t, http.StatusNotImplemented, rr.Code, path)
		assert.Equal(t, "not_implemented", errorCode(t, rr), path)
	}
}

func TestNewRouter_WithRegistrars(t *testing.T) {
	registrar := func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	router := NewRouter(WithProductRoutes(registrar))

	assert.Equal(t, http.StatusNoContent, serve(t, router, http.MethodGet, "/api/v1/products").Code)
	assert.Equal(t, http.StatusNotImplemented, serve(t, router, http.MethodGet, "/api/v1/orders").Code)

	rr := serve(t, router, http.MethodDelete, "/api/v1/products")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestNewRouter_BasePath(t *testing.T) {
	registrar := func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
	router := NewRouter(WithBasePath("/store"), WithOrderRoutes(registrar))

	assert.Equal(t, http.StatusNoContent, serve(t, router, http.MethodGet, "/store/orders").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodGet, "/api/v1/orders").Code)
	assert.Equal(t, http.StatusOK, serve(t, router, http.MethodGet, "/healthz").Code)
}

func TestNewRouter_NotFound(t *testing.T) {
	rr := serve(t, NewRouter(), http.MethodGet, "/does/not/exist")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "route_not_found", errorCode(t, rr))
}

func TestNewRouter_AdminGroupMiddleware(t *testing.T) {
	header := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test-Middleware", "admin")
			next.ServeHTTP(w, r)
		})
	}

	router := NewRouter(WithAdminMiddlewares(header))

	assert.Equal(t, "admin", serve(t, router, http.MethodGet, "/api/v1/admin/orders").Header().Get("X-Test-Middleware"))
	assert.Empty(t, serve(t, router, http.MethodGet, "/api/v1/orders").Header().Get("X-Test-Middleware"))
}
