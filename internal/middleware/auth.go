package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aradabingo/bingomaster/internal/models"
)

type contextKey string

const actorKey contextKey = "actor"

// TokenValidator resolves an opaque session token to an actor.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (models.Actor, error)
}

type Authenticator struct {
	auth TokenValidator
}

func NewAuthenticator(auth TokenValidator) *Authenticator {
	return &Authenticator{auth: auth}
}

// Require rejects requests without a valid session token and attaches the
// actor to the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Missing session token")
			return
		}

		actor, err := a.auth.Validate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// TokenFromRequest accepts either an Authorization bearer header or a token
// query parameter. Browsers cannot set headers on websocket upgrades, hence
// the query fallback.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	return r.URL.Query().Get("token")
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated actor attached by Require.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}
