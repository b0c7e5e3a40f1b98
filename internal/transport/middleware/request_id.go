package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/pkg/ctxutil"
)

const (
	RequestIDHeader = "X-Request-Id"
	ActorIDHeader   = "X-Actor-Id"
)

// RequestID propagates the incoming request id or assigns a new one, and
// echoes it in the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
		})
	}
}

// Actor stores the caller-supplied actor id in the context. Ops endpoints
// sit behind the operator network, so the header is trusted as is.
func Actor() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(ActorIDHeader)); id != "" {
				r = r.WithContext(ctxutil.WithActorID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
