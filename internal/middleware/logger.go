package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/alovak/fidelis-loyalty/internal/cardnum"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// RequestIDHeader carries the request id back to the caller.
const RequestIDHeader = "X-Request-Id"

// NewStructuredLogger logs one line per request. Card numbers in the path
// are masked.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				attrs := []any{
					slog.String("request_id", id),
					slog.String("method", r.Method),
					slog.String("path", MaskPath(r.URL.Path)),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if status >= http.StatusInternalServerError {
					logger.Error("request", attrs...)
					return
				}
				logger.Info("request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// MaskPath masks every path segment that looks like a card number.
func MaskPath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if len(s) >= 12 && cardnum.IsDigits(s) {
			segs[i] = cardnum.Mask(s)
		}
	}
	return strings.Join(segs, "/")
}
