package repository

import (
	"context"
	"strings"
	"time"
)

// PrincipalKind discrimina el tipo de identidad autenticada.
type PrincipalKind string

const (
	// KindEndUser es un usuario final, scoped a proyecto+environment.
	KindEndUser PrincipalKind = "user"
	// KindOrgMember es un miembro de organización (lleva rol).
	KindOrgMember PrincipalKind = "member"
	// KindPlatformAdmin es un admin de plataforma (sin tenant).
	KindPlatformAdmin PrincipalKind = "admin"
)

// TenantScope delimita el boundary de unicidad y aislamiento.
// Para end users: OrgID+ProjectID+Environment. Para org members: solo OrgID.
type TenantScope struct {
	OrgID       string
	ProjectID   string
	Environment string // "prod" | "dev"
}

// Key retorna una representación canónica del scope (para índices en memoria).
func (s TenantScope) Key() string {
	return s.OrgID + "/" + s.ProjectID + "/" + s.Environment
}

// Principal es una identidad tenant-scoped. El email es único dentro de su
// scope, nunca global.
type Principal struct {
	ID              string
	Kind            PrincipalKind
	Scope           TenantScope
	Email           string // normalizado (lower + trim)
	EmailVerified   bool
	DisplayName     string
	PasswordHash    string   // PHC argon2id
	PasswordHistory []string // últimos N hashes, más reciente primero
	Role            string   // solo org members
	MFAEnabled      bool

	// Lockout embebido: contador de fallos en ventana rodante.
	FailedLogins   int
	FailedWindowAt *time.Time
	LockedUntil    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail aplica la normalización canónica de emails del sistema.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LockoutState es el snapshot mutable del lockout de un principal.
type LockoutState struct {
	FailedLogins   int
	FailedWindowAt *time.Time
	LockedUntil    *time.Time
}

// PrincipalRepository define operaciones sobre principals.
type PrincipalRepository interface {
	// Create persiste un principal nuevo.
	// Retorna ErrConflict si el email ya existe dentro del scope.
	Create(ctx context.Context, p *Principal) error

	// GetByID busca por id. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Principal, error)

	// GetByEmail busca por email normalizado dentro de un scope.
	GetByEmail(ctx context.Context, scope TenantScope, email string) (*Principal, error)

	// UpdatePassword reemplaza el hash y empuja el anterior al historial,
	// truncando a historyLimit entradas.
	UpdatePassword(ctx context.Context, id, newHash string, historyLimit int) error

	// UpdateLockout persiste el estado de lockout.
	UpdateLockout(ctx context.Context, id string, st LockoutState) error

	// SetMFAEnabled marca el flag de MFA.
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error

	// UpdateEmail aplica un cambio de email/verificación (staged por el
	// linking OAuth). No valida unicidad contra otros scopes.
	UpdateEmail(ctx context.Context, id, email string, verified bool) error
}
