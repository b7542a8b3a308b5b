package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

// contextKey is unexported so no other package can collide with it.
type contextKey string

const userKey contextKey = "user"

// SessionResolver turns a credential cookie value into the live user.
// It returns an apperror.ErrUnauthenticated error for anything that is not
// an active session; any other error is a server fault.
type SessionResolver interface {
	Resolve(ctx context.Context, credential string) (*model.User, error)
}

// RequireSession rejects requests without a live session with 401 and puts
// the resolved user into the request context otherwise.
//
// HOW IT WORKS:
//  1. Read the session cookie. Missing → 401.
//  2. Resolve it to a user. Any dead or forged credential → 401.
//  3. A storage fault while resolving → 500, logged.
//  4. Otherwise store the user with WithUser and call next.
//
// Handlers behind it read the owner with UserFromContext; the service
// layer's RequireOwner does the same check again, so a route mounted
// outside the group still cannot act without a user.
func RequireSession(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromRequest(r)
			if credential == "" {
				writeUnauthenticated(w)
				return
			}

			user, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthenticated) {
					writeUnauthenticated(w)
					return
				}
				logger.Error("resolving session", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"internal server error"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalSession attaches the user when a live session is presented and
// passes the request through unchanged otherwise. Used by /api/auth/me.
func OptionalSession(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if credential := CredentialFromRequest(r); credential != "" {
				user, err := resolver.Resolve(r.Context(), credential)
				switch {
				case err == nil:
					r = r.WithContext(WithUser(r.Context(), user))
				case !errors.Is(err, apperror.ErrUnauthenticated):
					logger.Error("resolving session", "path", r.URL.Path, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user. Tests use it to build
// authenticated contexts without a cookie.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireSession or
// OptionalSession, and false on anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// UserIDFromContext returns "" when the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID, true
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}`))
}
