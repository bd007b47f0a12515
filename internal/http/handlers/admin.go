package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/apikey"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	httpx "github.com/dropDatabas3/authcore/internal/http"
)

type adminHandler struct {
	keys    *apikey.Service
	tenants repository.TenantRepository
}

// NewAdminHandler arma la superficie de administración: organizaciones,
// proyectos y API keys. El router la protege con bearer + rol admin.
func NewAdminHandler(keys *apikey.Service, tenants repository.TenantRepository) *adminHandler {
	return &adminHandler{keys: keys, tenants: tenants}
}

func (h *adminHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/admin/orgs", h.createOrg)
		r.Get("/v1/admin/orgs/{id}", h.getOrg)
		r.Post("/v1/admin/projects", h.createProject)
		r.Get("/v1/admin/projects/{id}", h.getProject)
		r.Post("/v1/admin/apikeys", h.createKey)
		r.Delete("/v1/admin/apikeys/{id}", h.revokeKey)
		r.Post("/v1/admin/apikeys/revoke-all", h.revokeAllKeys)
	})
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// POST /v1/admin/orgs {name, slug?}
func (h *adminHandler) createOrg(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name es requerido", 1106)
		return
	}
	slug := in.Slug
	if slug == "" {
		slug = slugify(in.Name)
	}
	o := &repository.Organization{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.tenants.CreateOrg(r.Context(), o); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, orgDTO(o))
}

func orgDTO(o *repository.Organization) map[string]any {
	return map[string]any{"id": o.ID, "name": o.Name, "slug": o.Slug, "created_at": o.CreatedAt}
}

func projectDTO(p *repository.Project) map[string]any {
	return map[string]any{"id": p.ID, "org_id": p.OrgID, "name": p.Name, "slug": p.Slug, "created_at": p.CreatedAt}
}

// GET /v1/admin/orgs/{id}
func (h *adminHandler) getOrg(w http.ResponseWriter, r *http.Request) {
	o, err := h.tenants.GetOrg(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orgDTO(o))
}

// POST /v1/admin/projects {org_id, name, slug?}
func (h *adminHandler) createProject(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrgID string `json:"org_id"`
		Name  string `json:"name"`
		Slug  string `json:"slug"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if in.OrgID == "" || strings.TrimSpace(in.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "org_id y name son requeridos", 1106)
		return
	}
	// La org tiene que existir antes de colgarle proyectos.
	if _, err := h.tenants.GetOrg(r.Context(), in.OrgID); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	slug := in.Slug
	if slug == "" {
		slug = slugify(in.Name)
	}
	p := &repository.Project{
		ID:        uuid.NewString(),
		OrgID:     in.OrgID,
		Name:      strings.TrimSpace(in.Name),
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.tenants.CreateProject(r.Context(), p); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, projectDTO(p))
}

// GET /v1/admin/projects/{id}
func (h *adminHandler) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.tenants.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, projectDTO(p))
}

// POST /v1/admin/apikeys {org_id, project_id, environment, name}
// El valor crudo de la key aparece SOLO en esta respuesta.
func (h *adminHandler) createKey(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrgID       string `json:"org_id"`
		ProjectID   string `json:"project_id"`
		Environment string `json:"environment"`
		Name        string `json:"name"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	created, err := h.keys.Create(r.Context(), in.OrgID, in.ProjectID, in.Environment, in.Name)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":          created.ID,
		"api_key":     created.Raw,
		"name":        created.Key.Name,
		"environment": created.Key.Environment,
	})
}

// DELETE /v1/admin/apikeys/{id}
func (h *adminHandler) revokeKey(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/admin/apikeys/revoke-all {project_id}
func (h *adminHandler) revokeAllKeys(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProjectID string `json:"project_id"`
	}
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if in.ProjectID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "project_id es requerido", 1106)
		return
	}
	n, err := h.keys.RevokeAllByProject(r.Context(), in.ProjectID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"revoked": n})
}
