package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/authcore/internal/apikey"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	"github.com/dropDatabas3/authcore/internal/metrics"
)

// RequireAPIKey resuelve X-API-Key y deja el alcance (org/proyecto/ambiente)
// en el contexto. Clave ausente, desconocida o revocada responden el mismo 401.
func RequireAPIKey(svc *apikey.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if raw == "" {
				metrics.APIKeyResolves.WithLabelValues("missing").Inc()
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "API key inválida", 1301)
				return
			}

			scope, err := svc.Resolve(r.Context(), raw)
			if err != nil {
				metrics.APIKeyResolves.WithLabelValues("denied").Inc()
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "API key inválida", 1301)
				return
			}

			metrics.APIKeyResolves.WithLabelValues("ok").Inc()
			next.ServeHTTP(w, r.WithContext(withAPIKeyScope(r.Context(), scope)))
		})
	}
}
