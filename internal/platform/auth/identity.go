// Package auth verifies bearer tokens and places the caller's Identity on the request context.
package auth

import (
	"context"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/cbw-coffee/api/internal/domain"
)

// Identity is the authenticated caller. Customers come from Firebase ID tokens,
// admins from back-office JWTs.
type Identity struct {
	Subject string
	Email   string
	Locale  string
	Role    domain.ActorRole

	token *firebaseauth.Token
}

// Token returns the decoded Firebase token for customer identities.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

// Actor converts the identity into the actor recorded on order history.
func (i *Identity) Actor() domain.OrderActor {
	if i == nil {
		return domain.OrderActor{}
	}
	return domain.OrderActor{ID: i.Subject, Role: i.Role}
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil || identity.Subject == "" {
		return nil, false
	}
	return identity, true
}
