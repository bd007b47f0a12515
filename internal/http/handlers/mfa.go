package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/mfa"
)

type mfaHandler struct {
	engine *mfa.Engine
}

// NewMFAHandler arma el ciclo de vida TOTP. Todas las rutas exigen bearer:
// el principal sale del token, nunca del body.
func NewMFAHandler(engine *mfa.Engine) *mfaHandler {
	return &mfaHandler{engine: engine}
}

func (h *mfaHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/mfa/totp/setup", h.setup)
		r.Post("/v1/mfa/totp/verify", h.verify)
		r.Post("/v1/mfa/totp/disable", h.disable)
		r.Post("/v1/mfa/recovery/regenerate", h.regenerateRecovery)
		r.Get("/v1/mfa/status", h.status)
	})
}

func principalFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	pid := mw.GetPrincipalID(r.Context())
	if pid == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token inválido", 1402)
		return "", false
	}
	return pid, true
}

// POST /v1/mfa/totp/setup — genera secreto + recovery codes.
// El secreto en claro y los códigos se devuelven esta única vez.
func (h *mfaHandler) setup(w http.ResponseWriter, r *http.Request) {
	pid, ok := principalFrom(w, r)
	if !ok {
		return
	}

	email := ""
	if claims := mw.GetClaims(r.Context()); claims != nil {
		email, _ = claims["email"].(string)
	}
	if email == "" {
		email = pid
	}

	res, err := h.engine.Setup(r.Context(), pid, email)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"secret_base32":  res.SecretB32,
		"otpauth_url":    res.OTPAuthURL,
		"recovery_codes": res.RecoveryCodes,
	})
}

// POST /v1/mfa/totp/verify {code} — confirma el enrolamiento pendiente
// (o valida un código sobre una credencial ya activa).
func (h *mfaHandler) verify(w http.ResponseWriter, r *http.Request) {
	pid, ok := principalFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Code string `json:"code"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	okCode, err := h.engine.Verify(r.Context(), pid, strings.TrimSpace(in.Code))
	if err != nil {
		metrics.MFAVerifications.WithLabelValues("error").Inc()
		httpx.WriteDomainError(w, err)
		return
	}
	if !okCode {
		metrics.MFAVerifications.WithLabelValues("denied").Inc()
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_code", "código inválido", 1501)
		return
	}
	metrics.MFAVerifications.WithLabelValues("ok").Inc()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"enabled": true})
}

// POST /v1/mfa/totp/disable {code} — exige probar posesión del factor
// (TOTP fresco o recovery code) antes de apagarlo.
func (h *mfaHandler) disable(w http.ResponseWriter, r *http.Request) {
	pid, ok := principalFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Code string `json:"code"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if err := h.engine.Disable(r.Context(), pid, strings.TrimSpace(in.Code)); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/mfa/recovery/regenerate {code} — invalida los codes restantes y
// emite diez nuevos. Exige TOTP fresco o un recovery code vigente.
func (h *mfaHandler) regenerateRecovery(w http.ResponseWriter, r *http.Request) {
	pid, ok := principalFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Code string `json:"code"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	codes, err := h.engine.RegenerateRecoveryCodes(r.Context(), pid, strings.TrimSpace(in.Code))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"recovery_codes": codes})
}

// GET /v1/mfa/status
func (h *mfaHandler) status(w http.ResponseWriter, r *http.Request) {
	pid, ok := principalFrom(w, r)
	if !ok {
		return
	}
	enabled, err := h.engine.Enabled(r.Context(), pid)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"enabled": enabled})
}
