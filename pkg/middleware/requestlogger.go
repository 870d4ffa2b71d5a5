package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/CosmeticsGo/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation, user and trace
// ids in the request context; handlers fetch it with logger.FromContext.
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get(UserHeader)
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
