package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tokenRepo struct{ s *Store }

func cloneToken(t *repository.RefreshToken) *repository.RefreshToken {
	ct := *t
	return &ct
}

func (r *tokenRepo) Create(ctx context.Context, t *repository.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ct := cloneToken(t)
	r.s.tokens[ct.ID] = ct
	r.s.tokensByHash[ct.TokenHash] = ct.ID
	return nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.tokensByHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(r.s.tokens[id]), nil
}

// MarkRotated es el CAS ACTIVE→ROTATED. El mutex del store hace de row lock:
// el primer caller gana, el resto ve el estado ya cambiado y pierde.
func (r *tokenRepo) MarkRotated(ctx context.Context, id, successorID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if t.Status != repository.TokenActive {
		return false, nil
	}
	t.Status = repository.TokenRotated
	t.RotatedTo = &successorID
	return true, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = repository.TokenRevoked
	return nil
}

// RevokeChain sube hasta la raíz de la cadena de rotación y revoca hacia
// adelante todo lo alcanzable.
func (r *tokenRepo) RevokeChain(ctx context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	root := t
	for root.ParentID != nil {
		parent, ok := r.s.tokens[*root.ParentID]
		if !ok {
			break
		}
		root = parent
	}
	n := 0
	for cur := root; cur != nil; {
		if cur.Status != repository.TokenRevoked {
			cur.Status = repository.TokenRevoked
			n++
		}
		if cur.RotatedTo == nil {
			break
		}
		cur = r.s.tokens[*cur.RotatedTo]
	}
	return n, nil
}

func (r *tokenRepo) RevokeAllByPrincipal(ctx context.Context, principalID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.PrincipalID == principalID && t.Status == repository.TokenActive {
			t.Status = repository.TokenRevoked
			n++
		}
	}
	return n, nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.s.tokensByHash, t.TokenHash)
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
