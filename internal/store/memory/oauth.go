package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type oauthRepo struct{ s *Store }

func cloneConn(c *repository.OAuthConnection) *repository.OAuthConnection {
	cc := *c
	return &cc
}

func (r *oauthRepo) GetConnection(ctx context.Context, scope repository.TenantScope, provider, providerUserID string) (*repository.OAuthConnection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.connsByKey[connKey(scope, provider, providerUserID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneConn(r.s.conns[id]), nil
}

func (r *oauthRepo) CreateConnection(ctx context.Context, c *repository.OAuthConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := connKey(c.Scope, c.Provider, c.ProviderUserID)
	if _, dup := r.s.connsByKey[key]; dup {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	cc := cloneConn(c)
	cc.CreatedAt, cc.UpdatedAt = now, now
	r.s.conns[cc.ID] = cc
	r.s.connsByKey[key] = cc.ID
	return nil
}

func (r *oauthRepo) UpdateConnectionEmail(ctx context.Context, id, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conns[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Email = repository.NormalizeEmail(email)
	c.UpdatedAt = time.Now().UTC()
	return nil
}
