package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"golang.org/x/text/language"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/httpx"
)

const defaultVerifyTimeout = 5 * time.Second

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// CustomerAuthenticator authenticates storefront customers with Firebase ID tokens.
type CustomerAuthenticator struct {
	verifier TokenVerifier
	timeout  time.Duration
}

type CustomerOption func(*CustomerAuthenticator)

func WithVerificationTimeout(d time.Duration) CustomerOption {
	return func(a *CustomerAuthenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewCustomerAuthenticator(verifier TokenVerifier, opts ...CustomerOption) *CustomerAuthenticator {
	a := &CustomerAuthenticator{verifier: verifier, timeout: defaultVerifyTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireCustomer rejects requests without a valid Firebase ID token and stores a
// CUSTOMER identity keyed by the token UID.
func (a *CustomerAuthenticator) RequireCustomer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, ok := BearerToken(r)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "access token required", http.StatusUnauthorized))
				return
			}
			if a == nil || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication unavailable", http.StatusUnauthorized))
				return
			}

			vctx, cancel := context.WithTimeout(ctx, a.timeout)
			token, err := a.verifier.VerifyIDToken(vctx, raw)
			cancel()
			if err != nil {
				writeVerificationError(ctx, w, err)
				return
			}
			if strings.TrimSpace(token.UID) == "" {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "token has no subject", http.StatusUnauthorized))
				return
			}

			identity := &Identity{
				Subject: token.UID,
				Email:   stringClaim(token.Claims, "email"),
				Locale:  normaliseLocale(stringClaim(token.Claims, "locale")),
				Role:    domain.ActorRoleCustomer,
				token:   token,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// normaliseLocale canonicalises a BCP 47 tag; unparseable tags are dropped.
func normaliseLocale(tag string) string {
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	return parsed.String()
}

func writeVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired), firebaseauth.IsIDTokenExpired(err):
		httpx.WriteError(ctx, w, httpx.NewError("token_expired", "token expired", http.StatusUnauthorized))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "invalid token", http.StatusUnauthorized))
	}
}
