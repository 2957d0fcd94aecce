package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/nospicy/possync/api/responses"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
)

// RateLimit caps requests per client IP over window. A non-positive limit
// disables it.
func RateLimit(limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"limit":          limit,
					"window_seconds": int(window.Seconds()),
				}), "trigger.rate_limit.blocked")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many sync requests"))
		}),
	)
}
