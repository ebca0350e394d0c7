package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/auth"
)

var fixedTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func newRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(DefaultHeader, key)
	}
	return req
}

func asCustomer(req *http.Request, uid string) *http.Request {
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{Subject: uid, Role: domain.ActorRoleCustomer})
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	code, _ := payload["error"].(string)
	return code
}

func TestMiddleware_NoKeyPassesThrough(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newRequest(`{}`, ""))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
}

func TestMiddleware_RequiredKey(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithRequired())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a key")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest(`{}`, ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "idempotency_key_required" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"orderNumber":"CBW-2025-000001"}`))
		}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, asCustomer(newRequest(`{"items":[]}`, "k-1"), "cust-1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, asCustomer(newRequest(`{"items":[]}`, "k-1"), "cust-1"))

	if calls != 1 {
		t.Fatalf("expected a single handler call, got %d", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get(ReplayHeader) != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if first.Header().Get(ReplayHeader) != "" {
		t.Fatalf("first response must not be marked as a replay")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestMiddleware_KeysAreScopedPerCaller(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), asCustomer(newRequest(`{}`, "shared"), "cust-1"))
	handler.ServeHTTP(httptest.NewRecorder(), asCustomer(newRequest(`{}`, "shared"), "cust-2"))

	if calls != 2 {
		t.Fatalf("expected separate callers to run independently, got %d calls", calls)
	}
}

func TestMiddleware_FingerprintMismatch(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), newRequest(`{"qty":1}`, "k-2"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest(`{"qty":2}`, "k-2"))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "idempotency_key_reused" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestMiddleware_ServerErrorsAreNotStored(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest(`{}`, "k-3"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest(`{}`, "k-3"))

	if first.Code != http.StatusServiceUnavailable || second.Code != http.StatusCreated {
		t.Fatalf("unexpected statuses %d then %d", first.Code, second.Code)
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", calls)
	}
}

func TestMiddleware_InFlightConflict(t *testing.T) {
	store := NewMemoryStore()
	scoped := "anonymous|k-4"
	if _, _, err := store.Reserve(context.Background(), scoped, digest(http.MethodPost, "/api/v1/orders", `{}`), fixedTime, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run while key is in flight")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest(`{}`, "k-4"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, _, err := store.Reserve(ctx, "old", "fp", fixedTime, time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Reserve(ctx, "new", "fp", fixedTime, time.Hour); err != nil {
		t.Fatal(err)
	}

	removed, err := store.PurgeExpired(ctx, fixedTime.Add(10*time.Minute), 0)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected one expired record removed, got %d", removed)
	}

	state, _, err := store.Reserve(ctx, "old", "other", fixedTime.Add(10*time.Minute), time.Minute)
	if err != nil || state != StateNew {
		t.Fatalf("expected purged key to be reusable, got state=%v err=%v", state, err)
	}
}
