package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authcore/internal/authflow"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
)

type accountHandler struct {
	flow *authflow.Service
}

// NewAccountHandler arma las operaciones de cuenta que exigen bearer token.
func NewAccountHandler(flow *authflow.Service) *accountHandler {
	return &accountHandler{flow: flow}
}

func (h *accountHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/auth/logout_all", h.logoutAll)
		r.Post("/v1/auth/change-password", h.changePassword)
	})
}

// POST /v1/auth/logout_all — revoca todas las sesiones del principal autenticado.
func (h *accountHandler) logoutAll(w http.ResponseWriter, r *http.Request) {
	pid := mw.GetPrincipalID(r.Context())
	if pid == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token inválido", 1402)
		return
	}
	n, err := h.flow.LogoutAll(r.Context(), pid)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

// POST /v1/auth/change-password {current_password, new_password}
func (h *accountHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	pid := mw.GetPrincipalID(r.Context())
	if pid == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token inválido", 1402)
		return
	}
	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if err := h.flow.ChangePassword(r.Context(), pid, in.CurrentPassword, in.NewPassword); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
