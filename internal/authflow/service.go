// Package authflow orquesta los flujos de autenticación: registro, login con
// lockout y desafío MFA, refresh, logout y reset de password. Los componentes
// de crypto y estado viven abajo; acá solo se coordinan.
package authflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/events"
	coreJWT "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/mfa"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/refresh"
	"github.com/dropDatabas3/authcore/internal/security/password"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/social"
)

// Parámetros de lockout: 5 fallos dentro de una ventana rodante de 15
// minutos bloquean la cuenta por 15 minutos. El desbloqueo es lazy.
const (
	MaxFailedLogins = 5
	FailedWindow    = 15 * time.Minute
	LockDuration    = 15 * time.Minute
)

// ResetTokenTTL acota la vida de un token de reset de password.
const ResetTokenTTL = 30 * time.Minute

const resetPrefix = "pwreset:"

// PolicyError lleva la lista completa de reglas violadas.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Violations, ", ")
}

func (e *PolicyError) Unwrap() error { return repository.ErrInvalidInput }

// TokenPair es una sesión emitida: access JWT + refresh opaco.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult es el resultado taggeado de un login: o tokens reales, o un
// challenge MFA que correlaciona identidad sin autorizar nada.
type LoginResult struct {
	MFARequired    bool
	ChallengeToken string
	Tokens         *TokenPair
	PrincipalID    string
}

// Meta es la metadata del request que acompaña a la emisión de tokens.
type Meta struct {
	IP        string
	UserAgent string
}

// Service coordina los flujos de autenticación.
type Service struct {
	principals repository.PrincipalRepository
	oauth      repository.OAuthRepository
	refresh    *refresh.Service
	issuer     *coreJWT.Issuer
	mfa        *mfa.Engine
	cache      cache.Client
	events     events.Publisher
	policy     password.Policy
	blacklist  *password.Blacklist
	now        func() time.Time
	log        *zap.Logger
}

// Deps agrupa los colaboradores del servicio.
type Deps struct {
	Principals repository.PrincipalRepository
	OAuth      repository.OAuthRepository
	Refresh    *refresh.Service
	Issuer     *coreJWT.Issuer
	MFA        *mfa.Engine
	Cache      cache.Client
	Events     events.Publisher
	Policy     *password.Policy
	Blacklist  *password.Blacklist
}

func NewService(d Deps) *Service {
	s := &Service{
		principals: d.Principals,
		oauth:      d.OAuth,
		refresh:    d.Refresh,
		issuer:     d.Issuer,
		mfa:        d.MFA,
		cache:      d.Cache,
		events:     d.Events,
		policy:     password.DefaultPolicy,
		blacklist:  d.Blacklist,
		now:        time.Now,
		log:        logger.Named("authflow"),
	}
	if d.Policy != nil {
		s.policy = *d.Policy
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	return s
}

// WithClock fija el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput describe el principal a registrar.
type RegisterInput struct {
	Scope       repository.TenantScope
	Kind        repository.PrincipalKind
	Email       string
	Password    string
	DisplayName string
	Role        string // solo org members
}

// Register crea un principal nuevo. El email es único dentro de su scope; la
// policy se evalúa completa y cada violación vuelve en el error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*repository.Principal, error) {
	email := repository.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", repository.ErrInvalidInput)
	}

	if err := s.checkPolicy(in.Password, nil); err != nil {
		return nil, err
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	p := &repository.Principal{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		Scope:        in.Scope,
		Email:        email,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.principals.Create(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.TypeUserRegistered,
		PrincipalID: p.ID,
		Scope:       p.Scope,
		Email:       p.Email,
		At:          now,
	})
	s.log.Info("principal registered",
		logger.PrincipalID(p.ID), logger.OrgID(p.Scope.OrgID),
		logger.ProjectID(p.Scope.ProjectID), logger.Environment(p.Scope.Environment))
	return p, nil
}

// Login verifica credenciales dentro de un scope. Email desconocido y
// password incorrecto fallan idéntico. Un principal con MFA habilitado no
// recibe tokens: recibe un challenge de un solo uso.
func (s *Service) Login(ctx context.Context, scope repository.TenantScope, email, plain string, meta Meta) (*LoginResult, error) {
	p, err := s.principals.GetByEmail(ctx, scope, repository.NormalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			// Verify dummy para no delatar existencia por timing.
			password.Verify(plain, dummyHash())
			return nil, repository.ErrUnauthorized
		}
		return nil, err
	}

	if err := s.checkLockout(ctx, p); err != nil {
		return nil, err
	}

	if !password.Verify(plain, p.PasswordHash) {
		s.recordFailure(ctx, p)
		return nil, repository.ErrUnauthorized
	}

	s.clearLockout(ctx, p)

	if p.MFAEnabled {
		challenge, err := s.mfa.IssueChallenge(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{MFARequired: true, ChallengeToken: challenge, PrincipalID: p.ID}, nil
	}

	pair, err := s.mint(ctx, p, meta)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: pair, PrincipalID: p.ID}, nil
}

// CompleteMFALogin canjea un challenge más un TOTP o recovery code por la
// sesión real. El challenge se consume aunque el segundo factor falle.
func (s *Service) CompleteMFALogin(ctx context.Context, challengeToken, code string, meta Meta) (*TokenPair, error) {
	principalID, err := s.mfa.ConsumeChallenge(ctx, challengeToken)
	if err != nil {
		return nil, err
	}

	ok, err := s.mfa.Verify(ctx, principalID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		ok, err = s.mfa.UseRecoveryCode(ctx, principalID, code)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, repository.ErrUnauthorized
	}

	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return s.mint(ctx, p, meta)
}

// Refresh rota el refresh token y emite un access token nuevo.
func (s *Service) Refresh(ctx context.Context, rawRefresh string, meta Meta) (*TokenPair, error) {
	rotated, err := s.refresh.Rotate(ctx, rawRefresh, refresh.Meta(meta))
	if err != nil {
		return nil, err
	}
	p, err := s.principals.GetByID(ctx, rotated.Token.PrincipalID)
	if err != nil {
		return nil, err
	}
	access, exp, err := s.issuer.Mint(mintSpec(p))
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  exp,
		RefreshToken:     rotated.Raw,
		RefreshExpiresAt: rotated.Token.ExpiresAt,
	}, nil
}

// Logout revoca el refresh token presentado. Idempotente.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	return s.refresh.Revoke(ctx, rawRefresh)
}

// LogoutAll revoca todas las sesiones del principal.
func (s *Service) LogoutAll(ctx context.Context, principalID string) (int, error) {
	return s.refresh.RevokeAllForPrincipal(ctx, principalID)
}

// RequestPasswordReset emite un token de reset de un solo uso y publica el
// evento para que el sink lo entregue. Hacia afuera siempre responde igual:
// que el email exista o no es indistinguible.
func (s *Service) RequestPasswordReset(ctx context.Context, scope repository.TenantScope, email string) error {
	p, err := s.principals.GetByEmail(ctx, scope, repository.NormalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}

	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	key := resetPrefix + tokens.SHA256Base64URL(raw)
	if err := s.cache.Set(ctx, key, []byte(p.ID), ResetTokenTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:        events.TypePasswordResetRequested,
		PrincipalID: p.ID,
		Scope:       p.Scope,
		Email:       p.Email,
		At:          s.now().UTC(),
		Data:        map[string]string{"reset_token": raw},
	})
	return nil
}

// ResetPassword canjea el token de reset y aplica el password nuevo. El
// cambio revoca todas las sesiones vigentes.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	key := resetPrefix + tokens.SHA256Base64URL(resetToken)
	val, found, err := s.cache.TakeOnce(ctx, key)
	if err != nil {
		return fmt.Errorf("redeem reset token: %w", err)
	}
	if !found {
		return repository.ErrUnauthorized
	}
	return s.applyNewPassword(ctx, string(val), newPassword)
}

// ChangePassword aplica un cambio autenticado: exige el password vigente.
func (s *Service) ChangePassword(ctx context.Context, principalID, current, newPassword string) error {
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return err
	}
	if !password.Verify(current, p.PasswordHash) {
		return repository.ErrUnauthorized
	}
	return s.applyNewPassword(ctx, principalID, newPassword)
}

// CompleteSocial reconcilia una identidad externa con los principals del
// tenant y ejecuta las escrituras que la decisión indique. Retorna el
// principal resultante, listo para emitir un exchange code.
func (s *Service) CompleteSocial(ctx context.Context, scope repository.TenantScope, id social.Identity) (*repository.Principal, error) {
	email := repository.NormalizeEmail(id.Email)

	conn, err := s.oauth.GetConnection(ctx, scope, id.Provider, id.ProviderUserID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}

	var owner *repository.Principal
	if conn == nil && email != "" {
		if cand, err := s.principals.GetByEmail(ctx, scope, email); err == nil && cand.EmailVerified {
			owner = cand
		} else if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
	}

	d, err := social.Decide(social.Input{
		Scope:      scope,
		Identity:   id,
		Connection: conn,
		EmailOwner: owner,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch d.Action {
	case social.ActionUseExisting:
		if d.UpdateConnectionEmail {
			if err := s.oauth.UpdateConnectionEmail(ctx, conn.ID, email); err != nil {
				return nil, err
			}
		}
		p, err := s.principals.GetByID(ctx, d.PrincipalID)
		if err != nil {
			return nil, err
		}
		if up := d.StagePrincipalEmail; up != nil && (!p.EmailVerified && up.Verified || up.Email != p.Email) {
			if err := s.principals.UpdateEmail(ctx, p.ID, up.Email, up.Verified || p.EmailVerified); err != nil {
				return nil, err
			}
			p.Email = up.Email
			p.EmailVerified = up.Verified || p.EmailVerified
		}
		return p, nil

	case social.ActionLink:
		if err := s.createConnection(ctx, scope, id, d.PrincipalID, email, now); err != nil {
			return nil, err
		}
		return s.principals.GetByID(ctx, d.PrincipalID)

	case social.ActionCreate:
		p := &repository.Principal{
			ID:            uuid.NewString(),
			Kind:          repository.KindEndUser,
			Scope:         d.NewPrincipal.Scope,
			Email:         d.NewPrincipal.Email,
			EmailVerified: d.NewPrincipal.EmailVerified,
			DisplayName:   d.NewPrincipal.DisplayName,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.principals.Create(ctx, p); err != nil {
			return nil, err
		}
		if err := s.createConnection(ctx, scope, id, p.ID, email, now); err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type: events.TypeUserRegistered, PrincipalID: p.ID,
			Scope: p.Scope, Email: p.Email, At: now,
			Data: map[string]string{"provider": id.Provider},
		})
		return p, nil
	}
	return nil, fmt.Errorf("unhandled linking action %d", d.Action)
}

// MintFor emite la sesión para un principal ya autenticado por otra vía
// (exchange code social).
func (s *Service) MintFor(ctx context.Context, principalID string, meta Meta) (*TokenPair, error) {
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return s.mint(ctx, p, meta)
}

func (s *Service) createConnection(ctx context.Context, scope repository.TenantScope, id social.Identity, principalID, email string, now time.Time) error {
	return s.oauth.CreateConnection(ctx, &repository.OAuthConnection{
		ID:             uuid.NewString(),
		Scope:          scope,
		Provider:       id.Provider,
		ProviderUserID: id.ProviderUserID,
		PrincipalID:    principalID,
		Email:          email,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) applyNewPassword(ctx context.Context, principalID, newPassword string) error {
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return err
	}

	history := append([]string{p.PasswordHash}, p.PasswordHistory...)
	if err := s.checkPolicy(newPassword, history); err != nil {
		return err
	}

	hash, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.principals.UpdatePassword(ctx, principalID, hash, s.policy.HistoryCount); err != nil {
		return err
	}

	if _, err := s.refresh.RevokeAllForPrincipal(ctx, principalID); err != nil {
		s.log.Error("revoke sessions after password change",
			logger.PrincipalID(principalID), logger.Err(err))
	}
	s.publish(ctx, events.Event{
		Type: events.TypePasswordChanged, PrincipalID: principalID,
		Scope: p.Scope, Email: p.Email, At: s.now().UTC(),
	})
	return nil
}

// checkPolicy junta TODAS las violaciones (estructura, blacklist, historial)
// en un solo error.
func (s *Service) checkPolicy(plain string, history []string) error {
	_, violations := s.policy.Validate(plain)
	if s.blacklist != nil && s.blacklist.Contains(plain) {
		violations = append(violations, password.ViolationBlacklisted)
	}
	if len(history) > 0 && s.policy.CheckHistory(plain, history) {
		violations = append(violations, password.ViolationReused)
	}
	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}

func (s *Service) checkLockout(ctx context.Context, p *repository.Principal) error {
	now := s.now().UTC()
	if p.LockedUntil == nil {
		return nil
	}
	if now.Before(*p.LockedUntil) {
		return repository.ErrLocked
	}
	// Lockout vencido: limpieza lazy, sin sweep de fondo.
	s.clearLockout(ctx, p)
	return nil
}

func (s *Service) recordFailure(ctx context.Context, p *repository.Principal) {
	now := s.now().UTC()
	st := repository.LockoutState{
		FailedLogins:   p.FailedLogins,
		FailedWindowAt: p.FailedWindowAt,
	}
	if st.FailedWindowAt == nil || now.Sub(*st.FailedWindowAt) > FailedWindow {
		st.FailedLogins = 1
		st.FailedWindowAt = &now
	} else {
		st.FailedLogins++
	}
	if st.FailedLogins >= MaxFailedLogins {
		until := now.Add(LockDuration)
		st.LockedUntil = &until
		s.publish(ctx, events.Event{
			Type: events.TypeAccountLocked, PrincipalID: p.ID,
			Scope: p.Scope, Email: p.Email, At: now,
		})
		s.log.Warn("account locked", logger.PrincipalID(p.ID), logger.Count(st.FailedLogins))
	}
	if err := s.principals.UpdateLockout(ctx, p.ID, st); err != nil {
		s.log.Error("persist lockout", logger.PrincipalID(p.ID), logger.Err(err))
	}
	p.FailedLogins = st.FailedLogins
	p.FailedWindowAt = st.FailedWindowAt
	p.LockedUntil = st.LockedUntil
}

func (s *Service) clearLockout(ctx context.Context, p *repository.Principal) {
	if p.FailedLogins == 0 && p.FailedWindowAt == nil && p.LockedUntil == nil {
		return
	}
	if err := s.principals.UpdateLockout(ctx, p.ID, repository.LockoutState{}); err != nil {
		s.log.Error("clear lockout", logger.PrincipalID(p.ID), logger.Err(err))
		return
	}
	p.FailedLogins = 0
	p.FailedWindowAt = nil
	p.LockedUntil = nil
}

func (s *Service) mint(ctx context.Context, p *repository.Principal, meta Meta) (*TokenPair, error) {
	access, exp, err := s.issuer.Mint(mintSpec(p))
	if err != nil {
		return nil, err
	}
	issued, err := s.refresh.Issue(ctx, p.ID, refresh.Meta(meta))
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  exp,
		RefreshToken:     issued.Raw,
		RefreshExpiresAt: issued.Token.ExpiresAt,
	}, nil
}

func mintSpec(p *repository.Principal) coreJWT.MintSpec {
	spec := coreJWT.MintSpec{Subject: p.ID, Type: coreJWT.TypeEndUser}
	if p.Kind != repository.KindEndUser {
		spec.Type = coreJWT.TypeOrgMember
		spec.Role = p.Role
		if p.Kind == repository.KindPlatformAdmin && spec.Role == "" {
			spec.Role = "admin"
		}
	}
	return spec
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error("publish event", logger.String("event", string(ev.Type)), logger.Err(err))
	}
}
