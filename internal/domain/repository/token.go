package repository

import (
	"context"
	"time"
)

// TokenStatus es el estado de un refresh token.
type TokenStatus string

const (
	TokenActive  TokenStatus = "ACTIVE"
	TokenRotated TokenStatus = "ROTATED"
	TokenRevoked TokenStatus = "REVOKED"
)

// RefreshToken representa un refresh token opaco. El valor crudo nunca se
// persiste: solo su hash SHA-256.
type RefreshToken struct {
	ID          string
	PrincipalID string
	TokenHash   string
	Status      TokenStatus
	IssuedAt    time.Time
	ExpiresAt   time.Time
	ParentID    *string // token del que fue rotado
	RotatedTo   *string // sucesor (exactamente uno)
	IP          *string
	UserAgent   *string
}

// RefreshTokenRepository define operaciones sobre refresh tokens.
// La rotación exige linearizabilidad por fila: MarkRotated es un CAS de estado.
type RefreshTokenRepository interface {
	// Create persiste un token nuevo (status ACTIVE).
	Create(ctx context.Context, t *RefreshToken) error

	// GetByHash busca por hash. Retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// MarkRotated transiciona ACTIVE→ROTATED y enlaza el sucesor, de forma
	// atómica. Retorna false si el token ya no estaba ACTIVE: de N llamadas
	// concurrentes sobre el mismo token gana exactamente una.
	MarkRotated(ctx context.Context, id, successorID string) (bool, error)

	// Revoke marca un token REVOKED (terminal, idempotente).
	Revoke(ctx context.Context, id string) error

	// RevokeChain revoca la cadena de rotación completa (ancestros y
	// descendientes del token dado). Retorna cuántos tokens tocó.
	RevokeChain(ctx context.Context, id string) (int, error)

	// RevokeAllByPrincipal revoca todos los tokens ACTIVE de un principal.
	RevokeAllByPrincipal(ctx context.Context, principalID string) (int, error)

	// DeleteExpired poda tokens vencidos antes de un instante dado.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
