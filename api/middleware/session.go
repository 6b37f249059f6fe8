package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/topsevenstore/checkout-api/pkg/logger"
)

// SessionIDHeader carries the anonymous shopper identity. The storefront
// echoes it back on every request; first contact gets one issued here.
const SessionIDHeader = "X-Session-Id"

type sessionIDKey struct{}

// Session ensures every request carries a shopper session id and exposes
// it via SessionIDFromContext.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionIDHeader)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(SessionIDHeader, sessionID)

			ctx := context.WithValue(r.Context(), sessionIDKey{}, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSessionID attaches a shopper session id to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the shopper session id attached by Session.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
