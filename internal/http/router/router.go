// Package router arma el árbol de rutas completo: públicas (API key),
// autenticadas (bearer), administración (bearer + rol admin) y operativas
// (well-known, health, metrics).
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/authcore/internal/apikey"
	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/http/handlers"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/mfa"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/social"
)

// Deps son las dependencias ya construidas que el router solo cablea.
type Deps struct {
	Issuer  *jwtx.Issuer
	JWKS    *jwtx.JWKSCache
	Flow    *authflow.Service
	MFA     *mfa.Engine
	APIKeys *apikey.Service
	Tenants repository.TenantRepository

	Providers *social.Registry
	Exchange  *social.ExchangeCodes
	Cache     cache.Client

	// ResultURL es adonde redirige el callback social (ver config).
	ResultURL string

	CORSAllowedOrigins []string

	// Limiters por endpoint; nil desactiva el límite correspondiente.
	LoginLimiter  rate.Limiter
	ForgotLimiter rate.Limiter
	MFALimiter    rate.Limiter

	// Health recibe las dependencias a chequear en readyz.
	Health map[string]handlers.Pinger
}

// New construye el http.Handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(mw.WithCORS(d.CORSAllowedOrigins))
	r.Use(mw.WithLogging())

	// Operativas: sin API key ni bearer.
	handlers.NewHealthHandler(d.Health).Register(r)
	handlers.NewWellKnownHandler(d.Issuer.Iss, d.JWKS).Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	soc := handlers.NewSocialHandler(d.Providers, d.Exchange, d.Flow, d.Cache, d.ResultURL)

	// El callback llega del browser redirigido por el provider: no puede
	// exigir API key. El state de un solo uso es quien autentica el flujo.
	soc.RegisterCallback(r)

	// Públicas: exigen X-API-Key, que además fija el tenant scope.
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAPIKey(d.APIKeys))
		handlers.NewAuthHandler(d.Flow, d.LoginLimiter, d.ForgotLimiter, d.MFALimiter).Register(r)
		soc.Register(r)
	})

	// Autenticadas: bearer del propio principal.
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Issuer))
		handlers.NewAccountHandler(d.Flow).Register(r)
		handlers.NewMFAHandler(d.MFA).Register(r)
	})

	// Administración: bearer + rol admin.
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Issuer))
		r.Use(mw.RequireAdmin())
		handlers.NewAdminHandler(d.APIKeys, d.Tenants).Register(r)
	})

	return r
}
