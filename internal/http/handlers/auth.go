package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/rate"
)

type authHandler struct {
	flow *authflow.Service

	// Limiters por endpoint; nil = sin límite.
	loginLimiter  rate.Limiter
	forgotLimiter rate.Limiter
	mfaLimiter    rate.Limiter
}

// NewAuthHandler arma el handler de registro, login y ciclo de vida de sesión.
func NewAuthHandler(flow *authflow.Service, loginL, forgotL, mfaL rate.Limiter) *authHandler {
	return &authHandler{flow: flow, loginLimiter: loginL, forgotLimiter: forgotL, mfaLimiter: mfaL}
}

// Register monta las rutas públicas de autenticación. Todas corren detrás de
// RequireAPIKey (el scope sale del API key); el router arma ese grupo.
func (h *authHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/auth/register", h.register)
		r.With(mw.WithRateLimit(h.loginLimiter, mw.IPPathRateKey)).Post("/v1/auth/login", h.login)
		r.With(mw.WithRateLimit(h.mfaLimiter, mw.IPPathRateKey)).Post("/v1/auth/mfa/complete", h.completeMFA)
		r.Post("/v1/auth/refresh", h.refresh)
		r.Post("/v1/auth/logout", h.logout)
		r.With(mw.WithRateLimit(h.forgotLimiter, mw.IPPathRateKey)).Post("/v1/auth/forgot", h.forgot)
		r.Post("/v1/auth/reset", h.reset)
	})
}

func requestMeta(r *http.Request) authflow.Meta {
	return authflow.Meta{IP: mw.ClientIP(r), UserAgent: r.UserAgent()}
}

func scopeFrom(w http.ResponseWriter, r *http.Request) (repository.TenantScope, bool) {
	s, ok := mw.GetAPIKeyScope(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "API key inválida", 1301)
		return repository.TenantScope{}, false
	}
	return repository.TenantScope{OrgID: s.OrgID, ProjectID: s.ProjectID, Environment: s.Environment}, true
}

type tokenPairDTO struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func toTokenPairDTO(t *authflow.TokenPair) tokenPairDTO {
	return tokenPairDTO{
		AccessToken:      t.AccessToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshToken:     t.RefreshToken,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

// POST /v1/auth/register {email, password, display_name?}
func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	p, err := h.flow.Register(r.Context(), authflow.RegisterInput{
		Scope:       scope,
		Kind:        repository.KindEndUser,
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.DisplayName,
	})
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":    p.ID,
		"email": p.Email,
	})
}

// POST /v1/auth/login {email, password}
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	res, err := h.flow.Login(r.Context(), scope, in.Email, in.Password, requestMeta(r))
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("denied").Inc()
		httpx.WriteDomainError(w, err)
		return
	}

	if res.MFARequired {
		metrics.LoginAttempts.WithLabelValues("mfa_challenge").Inc()
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"mfa_required":    true,
			"challenge_token": res.ChallengeToken,
		})
		return
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	httpx.WriteJSON(w, http.StatusOK, toTokenPairDTO(res.Tokens))
}

// POST /v1/auth/mfa/complete {challenge_token, code}
func (h *authHandler) completeMFA(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ChallengeToken string `json:"challenge_token"`
		Code           string `json:"code"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.ChallengeToken) == "" || strings.TrimSpace(in.Code) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "faltan challenge_token o code", 1106)
		return
	}

	tokens, err := h.flow.CompleteMFALogin(r.Context(), in.ChallengeToken, in.Code, requestMeta(r))
	if err != nil {
		metrics.MFAVerifications.WithLabelValues("denied").Inc()
		httpx.WriteDomainError(w, err)
		return
	}
	metrics.MFAVerifications.WithLabelValues("ok").Inc()
	httpx.WriteJSON(w, http.StatusOK, toTokenPairDTO(tokens))
}

// POST /v1/auth/refresh {refresh_token}
func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	tokens, err := h.flow.Refresh(r.Context(), in.RefreshToken, requestMeta(r))
	if err != nil {
		metrics.TokenRotations.WithLabelValues("denied").Inc()
		httpx.WriteDomainError(w, err)
		return
	}
	metrics.TokenRotations.WithLabelValues("ok").Inc()
	httpx.WriteJSON(w, http.StatusOK, toTokenPairDTO(tokens))
}

// POST /v1/auth/logout {refresh_token}. Idempotente: siempre 204.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if err := h.flow.Logout(r.Context(), in.RefreshToken); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/auth/forgot {email}. Siempre 202: no delatamos si el email existe.
func (h *authHandler) forgot(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var in struct {
		Email string `json:"email"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if err := h.flow.RequestPasswordReset(r.Context(), scope, in.Email); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

// POST /v1/auth/reset {token, new_password}
func (h *authHandler) reset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if err := h.flow.ResetPassword(r.Context(), in.Token, in.NewPassword); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
