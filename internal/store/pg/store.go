// Package pg implementa los repositorios del core sobre postgres (pgx).
// La linearizabilidad por fila se logra con UPDATEs condicionales (CAS de
// estado) y CTEs recursivas para las cadenas de rotación.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type Store struct{ pool *pgxpool.Pool }

// Config tuning opcional del pool.
type Config struct {
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

// New abre el pool y valida la conexión.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones/metrics).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Vistas por concern, mismas interfaces que el adapter memory.
func (s *Store) Principals() repository.PrincipalRepository { return &principalRepo{s} }
func (s *Store) Tokens() repository.RefreshTokenRepository  { return &tokenRepo{s} }
func (s *Store) APIKeys() repository.APIKeyRepository       { return &apiKeyRepo{s} }
func (s *Store) MFA() repository.MFARepository              { return &mfaRepo{s} }
func (s *Store) OAuth() repository.OAuthRepository          { return &oauthRepo{s} }
func (s *Store) Tenants() repository.TenantRepository       { return &tenantRepo{s} }

// mapErr traduce errores pgx a los sentinels del dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return repository.ErrConflict
	}
	return err
}
