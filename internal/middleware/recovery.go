package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
)

// Recovery answers a panicking request with 500 and logs the stack.
// http.ErrAbortHandler is re-raised so the server aborts the connection.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic recovered",
					slog.Any("error", rec),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())))

				apierror.ErrInternal.WriteJSON(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
