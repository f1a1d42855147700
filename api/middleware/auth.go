package middleware

import (
	"net/http"
	"strings"

	"github.com/launchforge/launchforge-backend/api/responses"
	"github.com/launchforge/launchforge-backend/pkg/config"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/logger"
	"github.com/launchforge/launchforge-backend/pkg/session"
)

// Auth verifies the bearer session token and seeds the request context
// with the tenant identity carried in its claims.
func Auth(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := session.Parse(cfg, raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithTenantID(ctx, claims.TenantID)
			ctx = WithTenantName(ctx, claims.TenantName)
			ctx = WithEmail(ctx, claims.Email)
			ctx = logg.WithFields(ctx, map[string]any{
				"tenant_id": claims.TenantID,
				"email":     claims.Email,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
