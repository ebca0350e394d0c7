package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbw-coffee/api/internal/domain"
)

const testAdminSecret = "0123456789abcdef0123456789abcdef"

func TestNewAdminAuthenticator_RejectsShortSecret(t *testing.T) {
	_, err := NewAdminAuthenticator("short")
	assert.Error(t, err)
}

func TestAdminAuthenticator_IssueAndVerify(t *testing.T) {
	authn, err := NewAdminAuthenticator(testAdminSecret, WithAdminIssuer("cbw-admin"))
	require.NoError(t, err)

	token, err := authn.Issue("adm_1", "ops@cbw.ae", domain.ActorRoleManager)
	require.NoError(t, err)

	identity, err := authn.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "adm_1", identity.Subject)
	assert.Equal(t, domain.ActorRoleManager, identity.Role)
	assert.True(t, identity.IsAdmin())
}

func TestAdminAuthenticator_IssueRejectsCustomerRole(t *testing.T) {
	authn, err := NewAdminAuthenticator(testAdminSecret)
	require.NoError(t, err)
	_, err = authn.Issue("cust", "", domain.ActorRoleCustomer)
	assert.Error(t, err)
}

func TestAdminAuthenticator_VerifyFailures(t *testing.T) {
	authn, err := NewAdminAuthenticator(testAdminSecret, WithAdminIssuer("cbw-admin"))
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		past, err := NewAdminAuthenticator(testAdminSecret, WithAdminIssuer("cbw-admin"),
			WithAdminClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
		require.NoError(t, err)
		token, err := past.Issue("adm_1", "", domain.ActorRoleStaff)
		require.NoError(t, err)

		_, err = authn.Verify(token)
		assert.True(t, errors.Is(err, ErrTokenExpired), "got %v", err)
	})

	t.Run("customer token type", func(t *testing.T) {
		claims := AdminClaims{Type: "customer", Role: "OWNER", RegisteredClaims: jwt.RegisteredClaims{
			Subject: "adm_1", Issuer: "cbw-admin", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
		require.NoError(t, err)

		_, err = authn.Verify(token)
		assert.True(t, errors.Is(err, ErrTokenInvalid))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewAdminAuthenticator("ffffffffffffffffffffffffffffffff", WithAdminIssuer("cbw-admin"))
		require.NoError(t, err)
		token, err := other.Issue("adm_1", "", domain.ActorRoleOwner)
		require.NoError(t, err)

		_, err = authn.Verify(token)
		assert.True(t, errors.Is(err, ErrTokenInvalid))
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other, err := NewAdminAuthenticator(testAdminSecret, WithAdminIssuer("someone-else"))
		require.NoError(t, err)
		token, err := other.Issue("adm_1", "", domain.ActorRoleOwner)
		require.NoError(t, err)

		_, err = authn.Verify(token)
		assert.True(t, errors.Is(err, ErrTokenInvalid))
	})
}

func TestRequireAdmin_RoleGate(t *testing.T) {
	authn, err := NewAdminAuthenticator(testAdminSecret)
	require.NoError(t, err)
	staffToken, err := authn.Issue("adm_staff", "", domain.ActorRoleStaff)
	require.NoError(t, err)

	var reached bool
	handler := authn.RequireAdmin(domain.ActorRoleOwner, domain.ActorRoleManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decodeError(t, rr))
}

func TestRequireAdmin_StoresIdentity(t *testing.T) {
	authn, err := NewAdminAuthenticator(testAdminSecret)
	require.NoError(t, err)
	token, err := authn.Issue("adm_owner", "", domain.ActorRoleOwner)
	require.NoError(t, err)

	var got *Identity
	handler := authn.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, domain.OrderActor{ID: "adm_owner", Role: domain.ActorRoleOwner}, got.Actor())
}
