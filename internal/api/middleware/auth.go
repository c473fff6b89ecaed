package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/problem"
	"github.com/arsenmarkotskyi/tt-event-management/internal/auth"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
)

const userKey contextKey = "current_user"

// TokenResolver maps a raw bearer token to its user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, rawToken string) (accounts.User, error)
}

// RequireAuth rejects requests without a valid token and stores the resolved
// user in the request context.
func RequireAuth(resolver TokenResolver, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication,
					"Authentication required", err, env)
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication,
					"Invalid or expired token", err, env)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a token when one is presented but lets anonymous
// requests through. A presented token that does not resolve is still a 401,
// matching the required variant.
func OptionalAuth(resolver TokenResolver, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err != nil {
				if errors.Is(err, auth.ErrMissingToken) {
					next.ServeHTTP(w, r)
					return
				}
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication,
					"Invalid or expired token", err, env)
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication,
					"Invalid or expired token", err, env)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user accounts.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user stored by RequireAuth or
// OptionalAuth.
func CurrentUser(ctx context.Context) (accounts.User, bool) {
	user, ok := ctx.Value(userKey).(accounts.User)
	return user, ok
}
