package repository

import (
	"context"
	"time"
)

// OAuthConnection vincula una identidad externa (provider, provider_user_id)
// a un principal, dentro de un tenant. La tupla (scope, provider,
// provider_user_id) es única.
type OAuthConnection struct {
	ID             string
	Scope          TenantScope
	Provider       string
	ProviderUserID string
	PrincipalID    string
	Email          string // último email visto del provider
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OAuthRepository define operaciones sobre conexiones OAuth.
type OAuthRepository interface {
	// GetConnection busca por (scope, provider, providerUserID).
	// Retorna ErrNotFound si no existe.
	GetConnection(ctx context.Context, scope TenantScope, provider, providerUserID string) (*OAuthConnection, error)

	// CreateConnection persiste una conexión nueva.
	// Retorna ErrConflict si la tupla única ya existe.
	CreateConnection(ctx context.Context, c *OAuthConnection) error

	// UpdateConnectionEmail actualiza el último email visto del provider.
	UpdateConnectionEmail(ctx context.Context, id, email string) error
}
