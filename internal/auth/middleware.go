package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/careportal/internal/repository"
)

// contextKey is an unexported type for context keys in this package, so
// no other package can read or shadow the authenticated account ID.
type contextKey string

const accountIDKey contextKey = "accountID"

// SessionCookie is the name of the HttpOnly cookie carrying the session
// token.
const SessionCookie = "token"

// RequireAuth enforces authentication on protected routes.
//
// The token is read from the session cookie, or from an
// "Authorization: Bearer" header for non-browser clients. On success the
// account ID is stored in the request context; otherwise the chain stops
// with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractAccountID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff enforces operator access on the admin directory routes.
//
// It runs after RequireAuth and checks the is_staff flag on the
// authenticated account: 403 for authenticated non-staff callers, 401 if
// somehow no identity is in the context. Inactive accounts are rejected
// even if their flag is still set.
func RequireStaff(accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := AccountIDFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			account, err := accounts.GetByID(r.Context(), accountID)
			if err != nil || !account.IsActive || !account.IsStaff {
				http.Error(w, `{"error":"forbidden","message":"staff access required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccountIDFromContext retrieves the authenticated account's ID from the
// request context. Returns ("", false) for anonymous requests.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok
}

// ContextWithAccountID returns a context carrying the given account ID.
// Exported for handler tests that bypass the middleware.
func ContextWithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func extractAccountID(r *http.Request, tokens *TokenService) (string, error) {
	tokenStr := ""
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if tokenStr == "" {
		return "", http.ErrNoCookie
	}
	return tokens.Validate(tokenStr)
}
