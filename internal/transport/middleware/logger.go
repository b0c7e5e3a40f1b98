package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// quietPaths are polled by probes and scrapers and logged at debug level.
var quietPaths = map[string]bool{
	"/live":    true,
	"/ready":   true,
	"/metrics": true,
}

// Logger logs one line per request with status, duration, request id and
// actor id when present. 5xx responses log at error level.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
			}
			if actorID, ok := ctxutil.ActorIDFromCtx(r.Context()); ok {
				attrs = append(attrs, slog.String("actor_id", actorID))
			}

			logger.LogAttrs(r.Context(), levelFor(r.URL.Path, sw.status), "http.request", attrs...)
		})
	}
}

func levelFor(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
