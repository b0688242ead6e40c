package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/models"
)

// actorKey is the context key for the authenticated actor.
type actorKey struct{}

// Resolver turns a presented credential (session token or API key) into
// an actor.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (access.Actor, error)
}

// Auth creates authentication middleware that resolves bearer
// credentials. Both session tokens and API keys travel in the
// Authorization header; the resolver tells them apart.
func Auth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			credential := authHeader[len(bearerPrefix):]
			if credential == "" {
				writeUnauthorized(w, r, "missing bearer credential")
				return
			}

			actor, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				// All resolution failures collapse into one message so
				// the response cannot be used to probe credential state.
				writeUnauthorized(w, r, "invalid or expired credential")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := GetRequestID(r.Context())
	problem := models.NewUnauthorized(traceID, detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetActor retrieves the authenticated actor from the context.
func GetActor(ctx context.Context) (access.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(access.Actor)
	return actor, ok
}
