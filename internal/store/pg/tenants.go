package pg

import (
	"context"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tenantRepo struct{ s *Store }

func (r *tenantRepo) CreateOrg(ctx context.Context, o *repository.Organization) error {
	_, err := r.s.pool.Exec(ctx,
		`INSERT INTO organization (id, name, slug, created_at) VALUES ($1,$2,$3,$4)`,
		o.ID, o.Name, o.Slug, o.CreatedAt)
	return mapErr(err)
}

func (r *tenantRepo) GetOrg(ctx context.Context, id string) (*repository.Organization, error) {
	row := r.s.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM organization WHERE id = $1`, id)
	var o repository.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *tenantRepo) CreateProject(ctx context.Context, p *repository.Project) error {
	_, err := r.s.pool.Exec(ctx,
		`INSERT INTO project (id, org_id, name, slug, created_at) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.OrgID, p.Name, p.Slug, p.CreatedAt)
	return mapErr(err)
}

func (r *tenantRepo) GetProject(ctx context.Context, id string) (*repository.Project, error) {
	row := r.s.pool.QueryRow(ctx,
		`SELECT id, org_id, name, slug, created_at FROM project WHERE id = $1`, id)
	var p repository.Project
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Slug, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
