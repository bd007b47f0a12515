package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type principalRepo struct{ s *Store }

func clonePrincipal(p *repository.Principal) *repository.Principal {
	cp := *p
	cp.PasswordHistory = append([]string(nil), p.PasswordHistory...)
	return &cp
}

func (r *principalRepo) Create(ctx context.Context, p *repository.Principal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := emailKey(p.Scope, p.Email)
	if _, dup := r.s.principalEmails[key]; dup {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	cp := clonePrincipal(p)
	cp.Email = repository.NormalizeEmail(p.Email)
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.s.principals[cp.ID] = cp
	r.s.principalEmails[key] = cp.ID
	return nil
}

func (r *principalRepo) GetByID(ctx context.Context, id string) (*repository.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePrincipal(p), nil
}

func (r *principalRepo) GetByEmail(ctx context.Context, scope repository.TenantScope, email string) (*repository.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.principalEmails[emailKey(scope, email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePrincipal(r.s.principals[id]), nil
}

func (r *principalRepo) UpdatePassword(ctx context.Context, id, newHash string, historyLimit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.PasswordHash != "" {
		p.PasswordHistory = append([]string{p.PasswordHash}, p.PasswordHistory...)
	}
	if historyLimit >= 0 && len(p.PasswordHistory) > historyLimit {
		p.PasswordHistory = p.PasswordHistory[:historyLimit]
	}
	p.PasswordHash = newHash
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *principalRepo) UpdateLockout(ctx context.Context, id string, st repository.LockoutState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.FailedLogins = st.FailedLogins
	p.FailedWindowAt = st.FailedWindowAt
	p.LockedUntil = st.LockedUntil
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *principalRepo) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.MFAEnabled = enabled
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *principalRepo) UpdateEmail(ctx context.Context, id, email string, verified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	norm := repository.NormalizeEmail(email)
	if norm != p.Email {
		delete(r.s.principalEmails, emailKey(p.Scope, p.Email))
		r.s.principalEmails[emailKey(p.Scope, norm)] = id
		p.Email = norm
	}
	p.EmailVerified = verified
	p.UpdatedAt = time.Now().UTC()
	return nil
}
