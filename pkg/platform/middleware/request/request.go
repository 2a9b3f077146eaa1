// Package request provides request correlation ID middleware. Every request
// gets an ID, either the caller's X-Request-ID or a generated one, and the
// ID is echoed back on the response for client-side correlation.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"tradevault/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware assigns the request a correlation ID and stores it in the
// context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(headerRequestID, rid)
		ctx := requestcontext.WithRequestID(r.Context(), rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
