package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl marks GET responses as cacheable by shared caches for maxAge
// seconds. A non-positive maxAge marks them no-store.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "no-store"
	if maxAge > 0 {
		value = "public, max-age=" + strconv.Itoa(maxAge)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
