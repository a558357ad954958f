package httpapi

import (
	"net/http"

	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

// RouterConfig carries the cross-cutting settings for the HTTP router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	InternalJobToken   string
}

// NewRouter wires the handler routes behind the shared middleware chain.
func NewRouter(h *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	registerSystemRoutes(mux, h)
	registerGameRoutes(mux, h)
	registerPredictionRoutes(mux, h)
	registerInternalJobRoutes(mux, h, cfg.InternalJobToken)

	return RequestTracing(
		RequestLogging(logger,
			CORS(cfg.CORSAllowedOrigins,
				recoverPanic(logger, mux),
			),
		),
	)
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeInternalError(ctx, w)
			}
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
