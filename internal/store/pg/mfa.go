package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type mfaRepo struct{ s *Store }

func (r *mfaRepo) Upsert(ctx context.Context, principalID, secretEnc string) error {
	// re-setup resetea confirmación y descarta recovery codes viejos
	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO mfa_credential (principal_id, secret_encrypted)
		VALUES ($1,$2)
		ON CONFLICT (principal_id)
		DO UPDATE SET secret_encrypted = EXCLUDED.secret_encrypted,
		              confirmed_at = NULL,
		              last_counter = NULL,
		              updated_at = now()`,
		principalID, secretEnc,
	); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM mfa_recovery_code WHERE principal_id = $1`, principalID); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

func (r *mfaRepo) Get(ctx context.Context, principalID string) (*repository.MFACredential, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT principal_id, secret_encrypted, confirmed_at, last_counter, created_at, updated_at
		  FROM mfa_credential
		 WHERE principal_id = $1`, principalID)
	var m repository.MFACredential
	if err := row.Scan(&m.PrincipalID, &m.SecretEncrypted, &m.ConfirmedAt,
		&m.LastCounter, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *mfaRepo) Confirm(ctx context.Context, principalID string, at time.Time) error {
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE mfa_credential SET confirmed_at = $2, updated_at = now() WHERE principal_id = $1`,
		principalID, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mfaRepo) UpdateLastCounter(ctx context.Context, principalID string, counter int64) error {
	_, err := r.s.pool.Exec(ctx,
		`UPDATE mfa_credential SET last_counter = $2, updated_at = now() WHERE principal_id = $1`,
		principalID, counter)
	return mapErr(err)
}

func (r *mfaRepo) Delete(ctx context.Context, principalID string) error {
	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx,
		`DELETE FROM mfa_credential WHERE principal_id = $1`, principalID); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM mfa_recovery_code WHERE principal_id = $1`, principalID); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

func (r *mfaRepo) SetRecoveryCodes(ctx context.Context, principalID string, hashes []string) error {
	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx,
		`DELETE FROM mfa_recovery_code WHERE principal_id = $1`, principalID); err != nil {
		return mapErr(err)
	}
	var b pgx.Batch
	for _, h := range hashes {
		b.Queue(`INSERT INTO mfa_recovery_code (principal_id, code_hash) VALUES ($1,$2)`, principalID, h)
	}
	br := tx.SendBatch(ctx, &b)
	for range hashes {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapErr(err)
		}
	}
	if err := br.Close(); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

// UseRecoveryCode: el UPDATE condicional sobre used_at IS NULL garantiza que
// a lo sumo un caller concurrente reclame el code.
func (r *mfaRepo) UseRecoveryCode(ctx context.Context, principalID, hash string) (bool, error) {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE mfa_recovery_code
		   SET used_at = now()
		 WHERE principal_id = $1 AND code_hash = $2 AND used_at IS NULL`,
		principalID, hash)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
