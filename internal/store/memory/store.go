// Package memory implementa los repositorios del core en memoria, con la
// misma semántica de concurrencia que el adapter postgres (CAS de estado,
// consumo atómico). Se usa en dev (storage.driver: memory) y en tests.
package memory

import (
	"sync"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Store implementa todas las interfaces de internal/domain/repository.
type Store struct {
	mu sync.Mutex

	orgs     map[string]*repository.Organization
	projects map[string]*repository.Project

	principals      map[string]*repository.Principal
	principalEmails map[string]string // scopeKey+"|"+email → id

	tokens       map[string]*repository.RefreshToken
	tokensByHash map[string]string // hash → id

	apiKeys       map[string]*repository.APIKey
	apiKeysByHash map[string]string

	mfa           map[string]*repository.MFACredential
	recoveryCodes map[string]map[string]bool // principalID → hash → usado

	conns      map[string]*repository.OAuthConnection
	connsByKey map[string]string // scopeKey+"|"+provider+"|"+puid → id
}

// Vistas por concern: cada repositorio del dominio es una vista sobre el
// mismo estado compartido, igual que los adapters sql.
func (s *Store) Principals() repository.PrincipalRepository   { return &principalRepo{s} }
func (s *Store) Tokens() repository.RefreshTokenRepository    { return &tokenRepo{s} }
func (s *Store) APIKeys() repository.APIKeyRepository         { return &apiKeyRepo{s} }
func (s *Store) MFA() repository.MFARepository                { return &mfaRepo{s} }
func (s *Store) OAuth() repository.OAuthRepository            { return &oauthRepo{s} }
func (s *Store) Tenants() repository.TenantRepository         { return &tenantRepo{s} }

// New crea un Store vacío.
func New() *Store {
	return &Store{
		orgs:            map[string]*repository.Organization{},
		projects:        map[string]*repository.Project{},
		principals:      map[string]*repository.Principal{},
		principalEmails: map[string]string{},
		tokens:          map[string]*repository.RefreshToken{},
		tokensByHash:    map[string]string{},
		apiKeys:         map[string]*repository.APIKey{},
		apiKeysByHash:   map[string]string{},
		mfa:             map[string]*repository.MFACredential{},
		recoveryCodes:   map[string]map[string]bool{},
		conns:           map[string]*repository.OAuthConnection{},
		connsByKey:      map[string]string{},
	}
}

func emailKey(scope repository.TenantScope, email string) string {
	return scope.Key() + "|" + repository.NormalizeEmail(email)
}

func connKey(scope repository.TenantScope, provider, puid string) string {
	return scope.Key() + "|" + provider + "|" + puid
}
