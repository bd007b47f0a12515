package repository

import (
	"context"
	"time"
)

// APIKeyStatus es el estado de una API key.
type APIKeyStatus string

const (
	APIKeyActive  APIKeyStatus = "ACTIVE"
	APIKeyRevoked APIKeyStatus = "REVOKED"
)

// APIKey es una credencial por proyecto+environment. El secreto crudo existe
// solo en el momento de creación; acá vive únicamente su hash.
type APIKey struct {
	ID          string
	OrgID       string
	ProjectID   string
	Environment string // "prod" | "dev"
	Name        string
	Prefix      string // marcador visible por environment (ak_prod_ / ak_dev_)
	SecretHash  string
	Status      APIKeyStatus
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

// APIKeyRepository define operaciones sobre API keys.
type APIKeyRepository interface {
	// Create persiste una key nueva (status ACTIVE).
	// Retorna ErrConflict si el nombre ya existe en el proyecto+environment.
	Create(ctx context.Context, k *APIKey) error

	// GetByHash busca por hash del secreto. Retorna ErrNotFound si no existe.
	// El caller (ApiKeyService) colapsa revocada/inexistente en un solo fallo.
	GetByHash(ctx context.Context, secretHash string) (*APIKey, error)

	// Revoke marca una key REVOKED (única transición posible).
	Revoke(ctx context.Context, id string) error

	// RevokeAllByProject revoca todas las keys ACTIVE de un proyecto.
	RevokeAllByProject(ctx context.Context, projectID string) (int, error)

	// TouchLastUsed actualiza el timestamp de último uso (best effort).
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
