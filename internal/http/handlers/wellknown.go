package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
)

type wellKnownHandler struct {
	issuer string
	jwks   *jwtx.JWKSCache
}

// NewWellKnownHandler publica JWKS y el documento de discovery. El JWKS sale
// de una cache con singleflight: construirlo es barato pero no gratis.
func NewWellKnownHandler(issuer string, jwks *jwtx.JWKSCache) *wellKnownHandler {
	return &wellKnownHandler{issuer: strings.TrimSuffix(issuer, "/"), jwks: jwks}
}

func (h *wellKnownHandler) Register(r chi.Router) {
	r.Get("/.well-known/jwks.json", h.serveJWKS)
	r.Get("/.well-known/openid-configuration", h.serveDiscovery)
}

func (h *wellKnownHandler) serveJWKS(w http.ResponseWriter, r *http.Request) {
	body, err := h.jwks.Get()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo construir JWKS", 1100)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(body)
}

func (h *wellKnownHandler) serveDiscovery(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer":                                h.issuer,
		"jwks_uri":                              h.issuer + "/.well-known/jwks.json",
		"token_endpoint":                        h.issuer + "/v1/auth/login",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}
