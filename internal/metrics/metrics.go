// Package metrics define las métricas Prometheus del core. Viven en un
// package propio para evitar ciclos de import entre los flujos y HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_login_attempts_total",
		Help: "Intentos de login por resultado (ok|unauthorized|locked|mfa_required)",
	}, []string{"result"})

	TokenRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_refresh_rotations_total",
		Help: "Rotaciones de refresh token por resultado (ok|unauthorized)",
	}, []string{"result"})

	TokenReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_refresh_replays_total",
		Help: "Replays de refresh token detectados (cadena revocada)",
	})

	APIKeyResolves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_apikey_resolves_total",
		Help: "Resoluciones de API key por resultado (ok|unauthorized)",
	}, []string{"result"})

	MFAVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_mfa_verifications_total",
		Help: "Verificaciones TOTP/recovery por resultado (ok|fail)",
	}, []string{"result"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authcore_http_request_duration_seconds",
		Help:    "Duración de requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Register registra todas las métricas en el registry dado (default si nil).
// Idempotente: registros duplicados no son error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginAttempts,
		TokenRotations,
		TokenReplays,
		APIKeyResolves,
		MFAVerifications,
		HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
