package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"triphub/internal/contextutils"
	"triphub/internal/response"
	"triphub/internal/services"
)

// Recovery converts handler panics into 500 responses instead of dropped
// connections.
func Recovery(logger *zap.Logger, writer *response.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic recovered in handler",
						zap.Any("panic", rec),
						zap.String("request_id", contextutils.GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					writer.Error(w, r, services.NewInternalError("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
