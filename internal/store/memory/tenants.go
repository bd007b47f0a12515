package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tenantRepo struct{ s *Store }

func (r *tenantRepo) CreateOrg(ctx context.Context, o *repository.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.orgs {
		if other.Slug == o.Slug {
			return repository.ErrConflict
		}
	}
	co := *o
	co.CreatedAt = time.Now().UTC()
	r.s.orgs[co.ID] = &co
	return nil
}

func (r *tenantRepo) GetOrg(ctx context.Context, id string) (*repository.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	co := *o
	return &co, nil
}

func (r *tenantRepo) CreateProject(ctx context.Context, p *repository.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[p.OrgID]; !ok {
		return repository.ErrNotFound
	}
	for _, other := range r.s.projects {
		if other.OrgID == p.OrgID && other.Slug == p.Slug {
			return repository.ErrConflict
		}
	}
	cp := *p
	cp.CreatedAt = time.Now().UTC()
	r.s.projects[cp.ID] = &cp
	return nil
}

func (r *tenantRepo) GetProject(ctx context.Context, id string) (*repository.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
