package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/CosmeticsGo/pkg/httputil"
)

// UserHeader identifies the shopper. Authentication happens upstream at the
// gateway; this service only trusts and forwards the id.
const UserHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID stores the shopper id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the shopper id set by RequireUser.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireUser rejects requests without a shopper id with 401 and stores the
// id in the context for downstream handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNAUTHORIZED",
					Message: UserHeader + " header is required",
				},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}
