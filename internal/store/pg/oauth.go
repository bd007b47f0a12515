package pg

import (
	"context"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type oauthRepo struct{ s *Store }

func (r *oauthRepo) GetConnection(ctx context.Context, scope repository.TenantScope, provider, providerUserID string) (*repository.OAuthConnection, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, org_id, project_id, environment, provider, provider_user_id,
		       principal_id, email, created_at, updated_at
		  FROM oauth_connection
		 WHERE org_id = $1 AND project_id = $2 AND environment = $3
		   AND provider = $4 AND provider_user_id = $5`,
		scope.OrgID, scope.ProjectID, scope.Environment, provider, providerUserID)
	var c repository.OAuthConnection
	if err := row.Scan(&c.ID, &c.Scope.OrgID, &c.Scope.ProjectID, &c.Scope.Environment,
		&c.Provider, &c.ProviderUserID, &c.PrincipalID, &c.Email,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *oauthRepo) CreateConnection(ctx context.Context, c *repository.OAuthConnection) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO oauth_connection
		       (id, org_id, project_id, environment, provider, provider_user_id,
		        principal_id, email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.Scope.OrgID, c.Scope.ProjectID, c.Scope.Environment,
		c.Provider, c.ProviderUserID, c.PrincipalID, c.Email,
		c.CreatedAt, c.UpdatedAt)
	return mapErr(err)
}

func (r *oauthRepo) UpdateConnectionEmail(ctx context.Context, id, email string) error {
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE oauth_connection SET email = $2, updated_at = now() WHERE id = $1`,
		id, email)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
