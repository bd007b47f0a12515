package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type apiKeyRepo struct{ s *Store }

func (r *apiKeyRepo) Create(ctx context.Context, k *repository.APIKey) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO api_key
		    (id, org_id, project_id, environment, name, prefix, secret_hash, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		k.ID, k.OrgID, k.ProjectID, k.Environment, k.Name, k.Prefix, k.SecretHash, k.Status,
	)
	return mapErr(err)
}

func (r *apiKeyRepo) GetByHash(ctx context.Context, secretHash string) (*repository.APIKey, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, org_id, project_id, environment, name, prefix, secret_hash,
		       status, last_used_at, created_at, revoked_at
		  FROM api_key
		 WHERE secret_hash = $1`, secretHash)
	var k repository.APIKey
	if err := row.Scan(&k.ID, &k.OrgID, &k.ProjectID, &k.Environment, &k.Name,
		&k.Prefix, &k.SecretHash, &k.Status, &k.LastUsedAt, &k.CreatedAt, &k.RevokedAt); err != nil {
		return nil, mapErr(err)
	}
	return &k, nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, id string) error {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE api_key SET status = 'REVOKED', revoked_at = now()
		 WHERE id = $1 AND status = 'ACTIVE'`, id)
	if err != nil {
		return mapErr(err)
	}
	_ = tag // revocar dos veces es un no-op
	return nil
}

func (r *apiKeyRepo) RevokeAllByProject(ctx context.Context, projectID string) (int, error) {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE api_key SET status = 'REVOKED', revoked_at = now()
		 WHERE project_id = $1 AND status = 'ACTIVE'`, projectID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.s.pool.Exec(ctx,
		`UPDATE api_key SET last_used_at = $2 WHERE id = $1`, id, at)
	return mapErr(err)
}
