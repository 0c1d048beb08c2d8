package handlers

import (
	"context"
	"net/http"

	"me_result_portal/backend/internal/shared"
)

// AuthService is the authentication surface the gateway depends on.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (string, *shared.User, error)
	Logout(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (*shared.User, error)
}

type contextKey string

// userContextKey carries the authenticated *shared.User through the request
const userContextKey contextKey = "user"

// WithUser stores the authenticated user on the request context
func WithUser(ctx context.Context, user *shared.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser returns the authenticated user placed on the context by the
// session middleware, or nil for unauthenticated requests
func CurrentUser(r *http.Request) *shared.User {
	user, _ := r.Context().Value(userContextKey).(*shared.User)
	return user
}
