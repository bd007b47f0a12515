package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(ctx context.Context, t *repository.RefreshToken) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO refresh_token
		    (id, principal_id, token_hash, status, issued_at, expires_at, parent_id, ip, user_agent)
		VALUES ($1,$2,$3,$4,$5,$6,$7, NULLIF($8,'')::inet, NULLIF($9,''))`,
		t.ID, t.PrincipalID, t.TokenHash, t.Status, t.IssuedAt, t.ExpiresAt,
		t.ParentID, deref(t.IP), deref(t.UserAgent),
	)
	return mapErr(err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, principal_id, token_hash, status, issued_at, expires_at,
		       parent_id, rotated_to, ip::text, user_agent
		  FROM refresh_token
		 WHERE token_hash = $1`, tokenHash)
	var t repository.RefreshToken
	if err := row.Scan(&t.ID, &t.PrincipalID, &t.TokenHash, &t.Status, &t.IssuedAt,
		&t.ExpiresAt, &t.ParentID, &t.RotatedTo, &t.IP, &t.UserAgent); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// MarkRotated: CAS de estado en un solo UPDATE condicional. De N requests
// concurrentes con el mismo token, postgres serializa por el row lock y
// exactamente una ve status='ACTIVE'.
func (r *tokenRepo) MarkRotated(ctx context.Context, id, successorID string) (bool, error) {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE refresh_token
		   SET status = 'ROTATED', rotated_to = $2
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id, successorID,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.s.pool.Exec(ctx,
		`UPDATE refresh_token SET status = 'REVOKED' WHERE id = $1`, id)
	return mapErr(err)
}

// RevokeChain revoca toda la cadena de rotación: sube a la raíz por
// parent_id y baja por rotated_to con una CTE recursiva.
func (r *tokenRepo) RevokeChain(ctx context.Context, id string) (int, error) {
	tag, err := r.s.pool.Exec(ctx, `
		WITH RECURSIVE up AS (
			SELECT id, parent_id FROM refresh_token WHERE id = $1
			UNION ALL
			SELECT t.id, t.parent_id FROM refresh_token t JOIN up ON t.id = up.parent_id
		), down AS (
			SELECT id, rotated_to FROM refresh_token WHERE id IN (SELECT id FROM up)
			UNION ALL
			SELECT t.id, t.rotated_to FROM refresh_token t JOIN down ON t.id = down.rotated_to
		)
		UPDATE refresh_token
		   SET status = 'REVOKED'
		 WHERE id IN (SELECT id FROM down) AND status <> 'REVOKED'`,
		id,
	)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) RevokeAllByPrincipal(ctx context.Context, principalID string) (int, error) {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE refresh_token SET status = 'REVOKED'
		 WHERE principal_id = $1 AND status = 'ACTIVE'`, principalID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.s.pool.Exec(ctx,
		`DELETE FROM refresh_token WHERE expires_at < $1`, before)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
