package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/nospicy/possync/api/responses"
	"github.com/nospicy/possync/pkg/config"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
)

const secretParam = "secret"

// How a trigger request was authorized.
const (
	AuthSecret    = "secret"
	AuthScheduler = "scheduler"
	AuthUserAgent = "user_agent"
)

type contextKey string

const ctxTriggerAuth contextKey = "trigger_auth"

// TriggerAuthFromContext returns how the current request was authorized.
func TriggerAuthFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTriggerAuth).(string); ok {
		return v
	}
	return ""
}

// TriggerAuth admits a request carrying the shared secret, the scheduler
// header, or a matching User-Agent. A supplied secret that does not match is
// rejected with 403 even if another credential is present.
func TriggerAuth(cfg config.TriggerConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			via, err := authorizeTrigger(cfg, r)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"user_agent": r.UserAgent(),
						"reason":     err.Message(),
					}), "trigger.auth.rejected")
				}
				responses.WriteError(ctx, nil, w, err)
				return
			}

			if logg != nil {
				ctx = logg.WithField(ctx, "trigger_auth", via)
			}
			ctx = context.WithValue(ctx, ctxTriggerAuth, via)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authorizeTrigger(cfg config.TriggerConfig, r *http.Request) (string, *pkgerrors.Error) {
	query := r.URL.Query()
	if query.Has(secretParam) {
		supplied := query.Get(secretParam)
		if cfg.Secret != "" && subtle.ConstantTimeCompare([]byte(supplied), []byte(cfg.Secret)) == 1 {
			return AuthSecret, nil
		}
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "invalid trigger secret")
	}

	if cfg.SchedulerHeader != "" && r.Header.Get(cfg.SchedulerHeader) != "" &&
		r.Header.Get(cfg.SchedulerHeader) == cfg.SchedulerHeaderValue {
		return AuthScheduler, nil
	}

	if cfg.UserAgentContains != "" && strings.Contains(r.UserAgent(), cfg.UserAgentContains) {
		return AuthUserAgent, nil
	}

	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "trigger credentials required")
}
