package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/social"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// stateTTL acota la ventana entre el redirect al provider y el callback.
const stateTTL = 10 * time.Minute

const statePrefix = "social:state:"

// stateGrant viaja por cache entre start y callback: fija nonce y scope
// para que el callback no confíe en nada que venga del browser.
type stateGrant struct {
	Nonce string                 `json:"nonce"`
	Scope repository.TenantScope `json:"scope"`
}

type socialHandler struct {
	providers *social.Registry
	exchange  *social.ExchangeCodes
	flow      *authflow.Service
	cache     cache.Client
	resultURL string
}

// NewSocialHandler arma el flujo social: start (redirect al provider),
// callback (reconciliación + exchange code) y exchange (code → tokens).
func NewSocialHandler(providers *social.Registry, exchange *social.ExchangeCodes, flow *authflow.Service, c cache.Client, resultURL string) *socialHandler {
	return &socialHandler{providers: providers, exchange: exchange, flow: flow, cache: c, resultURL: resultURL}
}

// Register monta las rutas. start y exchange corren detrás de RequireAPIKey;
// el callback llega del browser sin API key, por eso va en RegisterCallback.
func (h *socialHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Get("/v1/auth/social/providers", h.list)
		r.Get("/v1/auth/social/{provider}/start", h.start)
		r.Post("/v1/auth/social/exchange", h.redeem)
	})
}

func (h *socialHandler) RegisterCallback(r chi.Router) {
	r.Get("/v1/auth/social/{provider}/callback", h.callback)
}

// GET /v1/auth/social/providers
func (h *socialHandler) list(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"providers": h.providers.Names()})
}

// GET /v1/auth/social/{provider}/start — responde redirect al provider.
func (h *socialHandler) start(w http.ResponseWriter, r *http.Request) {
	scope, ok := mw.GetAPIKeyScope(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "API key inválida", 1301)
		return
	}
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "provider no configurado", 1601)
		return
	}

	state, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	nonce, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	grant := stateGrant{
		Nonce: nonce,
		Scope: repository.TenantScope{OrgID: scope.OrgID, ProjectID: scope.ProjectID, Environment: scope.Environment},
	}
	raw, _ := json.Marshal(grant)
	if err := h.cache.Set(r.Context(), statePrefix+tokens.SHA256Base64URL(state), raw, stateTTL); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	authURL, err := p.AuthURL(r.Context(), state, nonce)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GET /v1/auth/social/{provider}/callback?code=&state=
// Reconcilia la identidad externa y redirige al frontend con un exchange
// code de un solo uso. Nunca entrega tokens directamente en la URL.
func (h *socialHandler) callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, err := h.providers.Get(name)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "provider no configurado", 1601)
		return
	}

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "faltan code o state", 1602)
		return
	}

	// El state es de un solo uso: replay o CSRF caen acá.
	raw, found, err := h.cache.TakeOnce(r.Context(), statePrefix+tokens.SHA256Base64URL(state))
	if err != nil || !found {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_state", "state inválido o expirado", 1603)
		return
	}
	var grant stateGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_state", "state inválido o expirado", 1603)
		return
	}

	id, err := p.FetchIdentity(r.Context(), code, grant.Nonce)
	if err != nil {
		logger.From(r.Context()).Warn("social identity fetch failed",
			logger.Provider(name), logger.Err(err))
		httpx.WriteError(w, http.StatusUnauthorized, "provider_error", "no se pudo validar la identidad", 1604)
		return
	}

	principal, err := h.flow.CompleteSocial(r.Context(), grant.Scope, *id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	exCode, err := h.exchange.Issue(r.Context(), social.ExchangeGrant{
		PrincipalID: principal.ID,
		Scope:       grant.Scope,
		Provider:    name,
	})
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	if h.resultURL == "" {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"code": exCode})
		return
	}
	u, err := url.Parse(h.resultURL)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"code": exCode})
		return
	}
	qq := u.Query()
	qq.Set("code", exCode)
	qq.Set("provider", name)
	u.RawQuery = qq.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// POST /v1/auth/social/exchange {code} — canjea el code por tokens.
func (h *socialHandler) redeem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	grant, err := h.exchange.Redeem(r.Context(), in.Code)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	pair, err := h.flow.MintFor(r.Context(), grant.PrincipalID, requestMeta(r))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenPairDTO(pair))
}
