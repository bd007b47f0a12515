package pg

import (
	"context"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type principalRepo struct{ s *Store }

const principalCols = `
	id, kind, org_id, project_id, environment, email, email_verified,
	display_name, password_hash, password_history, role, mfa_enabled,
	failed_logins, failed_window_at, locked_until, created_at, updated_at`

func scanPrincipal(row interface{ Scan(...any) error }) (*repository.Principal, error) {
	var p repository.Principal
	err := row.Scan(
		&p.ID, &p.Kind, &p.Scope.OrgID, &p.Scope.ProjectID, &p.Scope.Environment,
		&p.Email, &p.EmailVerified, &p.DisplayName, &p.PasswordHash,
		&p.PasswordHistory, &p.Role, &p.MFAEnabled,
		&p.FailedLogins, &p.FailedWindowAt, &p.LockedUntil,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *principalRepo) Create(ctx context.Context, p *repository.Principal) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO principal
		    (id, kind, org_id, project_id, environment, email, email_verified,
		     display_name, password_hash, password_history, role, mfa_enabled)
		VALUES ($1,$2,$3,$4,$5,lower($6),$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Kind, p.Scope.OrgID, p.Scope.ProjectID, p.Scope.Environment,
		p.Email, p.EmailVerified, p.DisplayName, p.PasswordHash,
		p.PasswordHistory, p.Role, p.MFAEnabled,
	)
	return mapErr(err)
}

func (r *principalRepo) GetByID(ctx context.Context, id string) (*repository.Principal, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+principalCols+` FROM principal WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (r *principalRepo) GetByEmail(ctx context.Context, scope repository.TenantScope, email string) (*repository.Principal, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+principalCols+`
		  FROM principal
		 WHERE org_id = $1 AND project_id = $2 AND environment = $3 AND email = lower($4)`,
		scope.OrgID, scope.ProjectID, scope.Environment, email,
	)
	return scanPrincipal(row)
}

func (r *principalRepo) UpdatePassword(ctx context.Context, id, newHash string, historyLimit int) error {
	// el hash viejo entra al frente del historial; se trunca en SQL
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE principal
		   SET password_history = (array_prepend(password_hash, password_history))[1:$3],
		       password_hash = $2,
		       updated_at = now()
		 WHERE id = $1`,
		id, newHash, historyLimit,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *principalRepo) UpdateLockout(ctx context.Context, id string, st repository.LockoutState) error {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE principal
		   SET failed_logins = $2, failed_window_at = $3, locked_until = $4, updated_at = now()
		 WHERE id = $1`,
		id, st.FailedLogins, st.FailedWindowAt, st.LockedUntil,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *principalRepo) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE principal SET mfa_enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *principalRepo) UpdateEmail(ctx context.Context, id, email string, verified bool) error {
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE principal SET email = lower($2), email_verified = $3, updated_at = now() WHERE id = $1`,
		id, email, verified)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
