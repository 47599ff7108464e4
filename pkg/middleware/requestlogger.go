package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/catalog/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, user_id, trace_id and span_id. Mount it after
// RequestLogging, Tracing and GatewayIdentity so all of those are available.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID, ok := UserIDFromContext(ctx); ok {
				ctx = logger.WithUserID(ctx, userID.String())
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
