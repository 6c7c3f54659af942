package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/logging"
)

// Recovery converts handler panics into an internal error response. The
// stack goes to the log, never to the caller.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.Error("handler panic",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					gwerror.New(gwerror.KindInternal, "internal error").
						WithRequestID(RequestIDFromContext(r.Context())).
						WriteJSON(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
