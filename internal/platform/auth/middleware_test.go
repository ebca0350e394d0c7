package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbw-coffee/api/internal/domain"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func TestRequireCustomer_AllowsValidToken(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{
		UID:    "cust-123",
		Claims: map[string]any{"email": "buyer@example.ae", "locale": "ar-AE"},
	}}
	authn := NewCustomerAuthenticator(verifier)

	var got *Identity
	handler := authn.RequireCustomer()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-value")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "token-value", verifier.received)
	assert.Equal(t, "cust-123", got.Subject)
	assert.Equal(t, domain.ActorRoleCustomer, got.Role)
	assert.Equal(t, "buyer@example.ae", got.Email)
	assert.Equal(t, "ar-AE", got.Locale)
	assert.Equal(t, domain.OrderActor{ID: "cust-123", Role: domain.ActorRoleCustomer}, got.Actor())
	assert.False(t, got.IsAdmin())
}

func TestRequireCustomer_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		verifier *stubTokenVerifier
		wantCode string
	}{
		{name: "missing header", header: "", verifier: &stubTokenVerifier{}, wantCode: "unauthenticated"},
		{name: "wrong scheme", header: "Basic abc", verifier: &stubTokenVerifier{}, wantCode: "unauthenticated"},
		{name: "expired", header: "Bearer old", verifier: &stubTokenVerifier{err: ErrTokenExpired}, wantCode: "token_expired"},
		{name: "invalid", header: "Bearer bad", verifier: &stubTokenVerifier{err: errors.New("boom")}, wantCode: "invalid_token"},
		{name: "empty uid", header: "Bearer x", verifier: &stubTokenVerifier{token: &firebaseauth.Token{}}, wantCode: "invalid_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCustomerAuthenticator(tc.verifier).RequireCustomer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tc.wantCode, decodeError(t, rr))
		})
	}
}

func TestNormaliseLocale(t *testing.T) {
	assert.Equal(t, "en-AE", normaliseLocale("en-ae"))
	assert.Equal(t, "ar", normaliseLocale("ar"))
	assert.Equal(t, "", normaliseLocale("not a tag!"))
	assert.Equal(t, "", normaliseLocale(""))
}
