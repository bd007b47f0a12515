package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type apiKeyRepo struct{ s *Store }

func cloneAPIKey(k *repository.APIKey) *repository.APIKey {
	ck := *k
	return &ck
}

func (r *apiKeyRepo) Create(ctx context.Context, k *repository.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.apiKeys {
		if other.ProjectID == k.ProjectID && other.Environment == k.Environment &&
			other.Name == k.Name && other.Status == repository.APIKeyActive {
			return repository.ErrConflict
		}
	}
	ck := cloneAPIKey(k)
	ck.CreatedAt = time.Now().UTC()
	r.s.apiKeys[ck.ID] = ck
	r.s.apiKeysByHash[ck.SecretHash] = ck.ID
	return nil
}

func (r *apiKeyRepo) GetByHash(ctx context.Context, secretHash string) (*repository.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.apiKeysByHash[secretHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAPIKey(r.s.apiKeys[id]), nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	if k.Status != repository.APIKeyRevoked {
		now := time.Now().UTC()
		k.Status = repository.APIKeyRevoked
		k.RevokedAt = &now
	}
	return nil
}

func (r *apiKeyRepo) RevokeAllByProject(ctx context.Context, projectID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for _, k := range r.s.apiKeys {
		if k.ProjectID == projectID && k.Status == repository.APIKeyActive {
			k.Status = repository.APIKeyRevoked
			k.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.LastUsedAt = &at
	return nil
}
