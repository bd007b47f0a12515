package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type mfaRepo struct{ s *Store }

func cloneMFA(m *repository.MFACredential) *repository.MFACredential {
	cm := *m
	return &cm
}

func (r *mfaRepo) Upsert(ctx context.Context, principalID, secretEnc string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	m, ok := r.s.mfa[principalID]
	if !ok {
		m = &repository.MFACredential{PrincipalID: principalID, CreatedAt: now}
		r.s.mfa[principalID] = m
	}
	m.SecretEncrypted = secretEnc
	m.ConfirmedAt = nil
	m.LastCounter = nil
	m.UpdatedAt = now
	// re-setup invalida los recovery codes anteriores
	delete(r.s.recoveryCodes, principalID)
	return nil
}

func (r *mfaRepo) Get(ctx context.Context, principalID string) (*repository.MFACredential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mfa[principalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMFA(m), nil
}

func (r *mfaRepo) Confirm(ctx context.Context, principalID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mfa[principalID]
	if !ok {
		return repository.ErrNotFound
	}
	m.ConfirmedAt = &at
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *mfaRepo) UpdateLastCounter(ctx context.Context, principalID string, counter int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mfa[principalID]
	if !ok {
		return repository.ErrNotFound
	}
	m.LastCounter = &counter
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *mfaRepo) Delete(ctx context.Context, principalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.mfa, principalID)
	delete(r.s.recoveryCodes, principalID)
	return nil
}

func (r *mfaRepo) SetRecoveryCodes(ctx context.Context, principalID string, hashes []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		set[h] = false
	}
	r.s.recoveryCodes[principalID] = set
	return nil
}

// UseRecoveryCode marca el code como usado bajo el lock del store: a lo sumo
// un caller concurrente obtiene true para un hash dado.
func (r *mfaRepo) UseRecoveryCode(ctx context.Context, principalID, hash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set, ok := r.s.recoveryCodes[principalID]
	if !ok {
		return false, nil
	}
	used, exists := set[hash]
	if !exists || used {
		return false, nil
	}
	set[hash] = true
	return true, nil
}
