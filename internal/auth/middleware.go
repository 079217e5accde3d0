package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
)

// contextKey is unexported so no other package can read or overwrite the
// values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// UserLookup resolves a token subject to a stored user. service.AuthService
// satisfies it in the server; tests use fakes.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// ErrorWriter renders a failed authentication. The server passes the
// handler package's envelope writer so 401s look like every other error.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireAuth guards a route group:
//
//  1. No "Authorization: Bearer <token>" header → 401, nothing else runs.
//  2. Signature, expiry or format check fails   → 401.
//  3. The subject is not a stored user           → 401.
//  4. Otherwise the *model.User is put in the request context.
//
// A store failure while resolving the user is not the caller's fault and is
// passed through unchanged, which the error writer reports as 500.
func RequireAuth(tokens *TokenService, users UserLookup, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, tokens, users)
			if err != nil {
				writeErr(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the caller resolved by RequireAuth.
// It returns (nil, false) on routes that are not guarded.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WithUser returns a copy of ctx carrying user. Handler tests use it to skip
// the token round trip.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func authenticate(r *http.Request, tokens *TokenService, users UserLookup) (*model.User, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, apperror.Unauthenticated("Not authorized to access this route - No token provided")
	}

	userID, err := tokens.Validate(raw)
	if err != nil {
		return nil, apperror.Unauthenticated("Not authorized to access this route")
	}

	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User not found")
		}
		return nil, fmt.Errorf("auth: resolving token subject: %w", err)
	}

	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
