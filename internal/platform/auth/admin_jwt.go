package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/httpx"
)

const (
	adminTokenType       = "admin"
	defaultAdminTokenTTL = 15 * time.Minute
)

// AdminClaims is the payload of back-office access tokens.
type AdminClaims struct {
	Type  string `json:"type"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AdminAuthenticator issues and verifies HS256 admin access tokens.
type AdminAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type AdminOption func(*AdminAuthenticator)

func WithAdminIssuer(issuer string) AdminOption {
	return func(a *AdminAuthenticator) { a.issuer = strings.TrimSpace(issuer) }
}

func WithAdminTokenTTL(ttl time.Duration) AdminOption {
	return func(a *AdminAuthenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithAdminClock(now func() time.Time) AdminOption {
	return func(a *AdminAuthenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAdminAuthenticator(secret string, opts ...AdminOption) (*AdminAuthenticator, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: admin jwt secret must be at least 32 bytes")
	}
	a := &AdminAuthenticator{secret: []byte(secret), ttl: defaultAdminTokenTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Issue signs an access token for an admin user.
func (a *AdminAuthenticator) Issue(subject, email string, role domain.ActorRole) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("auth: subject is required")
	}
	if !role.IsAdmin() {
		return "", fmt.Errorf("auth: %q is not an admin role", role)
	}
	now := a.now().UTC()
	claims := AdminClaims{
		Type:  adminTokenType,
		Role:  string(role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns the admin identity it carries.
func (a *AdminAuthenticator) Verify(raw string) (*Identity, error) {
	claims := &AdminClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return a.secret, nil })
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Type != adminTokenType {
		return nil, fmt.Errorf("%w: token type %q", ErrTokenInvalid, claims.Type)
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	role := domain.ActorRole(strings.ToUpper(strings.TrimSpace(claims.Role)))
	if !role.IsAdmin() || strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject or admin role", ErrTokenInvalid)
	}
	return &Identity{Subject: claims.Subject, Email: claims.Email, Role: role}, nil
}

// RequireAdmin authenticates an admin token and, when roles are given, requires
// one of them (403 otherwise).
func (a *AdminAuthenticator) RequireAdmin(roles ...domain.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, ok := BearerToken(r)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "admin access token required", http.StatusUnauthorized))
				return
			}
			if a == nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication unavailable", http.StatusUnauthorized))
				return
			}
			identity, err := a.Verify(raw)
			if err != nil {
				writeVerificationError(ctx, w, err)
				return
			}
			if len(roles) > 0 && !hasRole(identity.Role, roles) {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func hasRole(role domain.ActorRole, allowed []domain.ActorRole) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
