package repository

import (
	"context"
	"time"
)

// MFACredential es la credencial TOTP de un principal. El secreto siempre
// está cifrado en reposo (secretbox); los recovery codes se guardan hasheados.
type MFACredential struct {
	PrincipalID     string
	SecretEncrypted string
	ConfirmedAt     *time.Time // nil => PENDING_VERIFICATION
	LastCounter     *int64     // último time-step TOTP aceptado (anti-replay)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MFARepository define operaciones sobre credenciales MFA y recovery codes.
type MFARepository interface {
	// Upsert crea o reemplaza el secreto TOTP, reseteando la confirmación.
	Upsert(ctx context.Context, principalID, secretEnc string) error

	// Get obtiene la credencial. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, principalID string) (*MFACredential, error)

	// Confirm marca la credencial como verificada (PENDING → ENABLED).
	Confirm(ctx context.Context, principalID string, at time.Time) error

	// UpdateLastCounter persiste el último time-step aceptado.
	UpdateLastCounter(ctx context.Context, principalID string, counter int64) error

	// Delete borra la credencial completa (secreto + recovery codes).
	Delete(ctx context.Context, principalID string) error

	// SetRecoveryCodes reemplaza los recovery codes (ya hasheados).
	SetRecoveryCodes(ctx context.Context, principalID string, hashes []string) error

	// UseRecoveryCode marca un code como consumido, de forma atómica: a lo
	// sumo un caller concurrente puede reclamar un code dado. Retorna true
	// si existía y estaba sin usar.
	UseRecoveryCode(ctx context.Context, principalID, hash string) (bool, error)
}
