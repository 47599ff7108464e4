package middleware

import "net/http"

// NoStore marks responses as uncacheable. Catalog reads must reflect the
// latest committed state, so neither browsers nor intermediaries may reuse
// them.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
