package middlewares

import (
	"net/http"
	"strings"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
)

// RequireAuth valida Authorization: Bearer <JWT> y guarda las claims en el contexto.
// Si el token es inválido o no está presente, responde 401.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "falta bearer token", 1401)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := issuer.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token inválido", 1402)
				return
			}

			ctx := withClaims(r.Context(), claims)
			if sub, _ := claims["sub"].(string); sub != "" {
				ctx = withPrincipalID(ctx, sub)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin exige un bearer ya validado cuyo token sea de miembro con rol admin.
// Se encadena después de RequireAuth.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			typ, _ := claims["typ"].(string)
			role, _ := claims["role"].(string)
			if typ != string(jwtx.TypeOrgMember) || role != "admin" {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "se requiere rol admin", 1403)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
