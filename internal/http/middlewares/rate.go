package middlewares

import (
	"net/http"
	"strconv"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	"github.com/dropDatabas3/authcore/internal/rate"
)

// RateKeyFunc deriva la clave de rate limiting a partir del request.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey limita por IP de cliente.
func IPOnlyRateKey(r *http.Request) string { return clientIP(r) }

// IPPathRateKey limita por IP + ruta, para separar límites por endpoint
// (login vs register) sin depender del body.
func IPPathRateKey(r *http.Request) string { return clientIP(r) + "|" + r.URL.Path }

// WithRateLimit aplica un limiter de ventana fija. Si el limiter falla
// (p.ej. redis caído) deja pasar: rate limiting nunca tumba el servicio.
func WithRateLimit(l rate.Limiter, keyFn RateKeyFunc) Middleware {
	if keyFn == nil {
		keyFn = IPPathRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			res, err := l.Allow(r.Context(), keyFn(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "demasiadas solicitudes", 1104)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
