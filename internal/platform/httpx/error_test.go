package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbw-coffee/api/internal/platform/requestctx"
)

func TestWriteError_Envelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "abc123"})
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("insufficient_stock", "not enough stock\nfor item", http.StatusConflict).
		WithDetails(map[string]any{"available": 2, "requested": 3}))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.Equal(t, "not enough stock for item", body["message"])
	assert.EqualValues(t, 409, body["status"])
	assert.EqualValues(t, 2, body["available"])
	assert.EqualValues(t, 3, body["requested"])
	assert.Equal(t, "abc123", body["trace_id"])
}

func TestWriteError_DetailsCannotOverrideCode(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(context.Background(), rr, NewError("order_not_found", "order not found", http.StatusNotFound).
		WithDetails(map[string]any{"error": "spoofed"}))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "order_not_found", body["error"])
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"beans"}`))
		var dst payload
		require.NoError(t, DecodeJSON(req, 1024, &dst, false))
		assert.Equal(t, "beans", dst.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
		var dst payload
		assert.Error(t, DecodeJSON(req, 1024, &dst, false))
	})

	t.Run("too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
		var dst payload
		err := DecodeJSON(req, 16, &dst, false)
		assert.True(t, errors.Is(err, ErrBodyTooLarge))
	})

	t.Run("empty allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  "))
		var dst payload
		assert.NoError(t, DecodeJSON(req, 16, &dst, true))
	})

	t.Run("empty rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var dst payload
		assert.Error(t, DecodeJSON(req, 16, &dst, false))
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"} {"name":"b"}`))
		var dst payload
		assert.Error(t, DecodeJSON(req, 1024, &dst, false))
	})
}
