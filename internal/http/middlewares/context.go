package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dropDatabas3/authcore/internal/apikey"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyClaims
	ctxKeyPrincipalID
	ctxKeyAPIKeyScope
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID devuelve el request ID inyectado por WithRequestID ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func withClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// GetClaims devuelve las claims del bearer token validado (nil si no hay).
func GetClaims(ctx context.Context) map[string]any {
	if v, ok := ctx.Value(ctxKeyClaims).(map[string]any); ok {
		return v
	}
	return nil
}

func withPrincipalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipalID, id)
}

// GetPrincipalID devuelve el subject del token validado ("" si no hay).
func GetPrincipalID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPrincipalID).(string); ok {
		return v
	}
	return ""
}

func withAPIKeyScope(ctx context.Context, s *apikey.Scope) context.Context {
	return context.WithValue(ctx, ctxKeyAPIKeyScope, s)
}

// GetAPIKeyScope devuelve el alcance del API key resuelto por RequireAPIKey.
func GetAPIKeyScope(ctx context.Context) (*apikey.Scope, bool) {
	v, ok := ctx.Value(ctxKeyAPIKeyScope).(*apikey.Scope)
	return v, ok && v != nil
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// ClientIP expone la IP del cliente para handlers que registran metadata.
func ClientIP(r *http.Request) string { return clientIP(r) }
