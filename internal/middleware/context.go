package middleware

import (
	"net/http"

	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// RequestIDHeader echoes the id under which a request was logged.
const RequestIDHeader = "X-Request-Id"

// InjectRequestID injects a RequestID into the context to be used by other middlewares
func InjectRequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := hubcontext.InjectRequestID(r.Context())

			requestID, _ := hubcontext.GetRequestID(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
