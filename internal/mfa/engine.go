// Package mfa implementa la máquina de estados TOTP de un principal:
// NOT_SET_UP → PENDING_VERIFICATION → ENABLED → (disable vuelve a NOT_SET_UP).
// El secreto vive cifrado en reposo; los recovery codes solo como hashes.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/events"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/security/secretbox"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/security/totp"
)

// ChallengeTTL es la vida del challenge token emitido tras un password check
// exitoso contra un principal con MFA. Corto y de un solo uso.
const ChallengeTTL = 5 * time.Minute

const challengePrefix = "mfa:challenge:"

// DefaultWindow acepta el step actual ±1 para absorber clock drift.
const DefaultWindow = 1

// SetupResult se retorna una única vez: el secreto y los codes en claro no
// pueden recuperarse después.
type SetupResult struct {
	SecretB32     string
	OTPAuthURL    string
	RecoveryCodes []string
}

// SessionRevoker corta las sesiones vigentes de un principal. Deshabilitar
// MFA baja el nivel de protección de la cuenta: las sesiones emitidas bajo
// MFA no sobreviven.
type SessionRevoker interface {
	RevokeAllForPrincipal(ctx context.Context, principalID string) (int, error)
}

// Engine orquesta setup, verificación, recovery y disable de TOTP.
type Engine struct {
	creds      repository.MFARepository
	principals repository.PrincipalRepository
	cache      cache.Client
	sessions   SessionRevoker
	events     events.Publisher
	issuerName string
	window     int
	now        func() time.Time
	log        *zap.Logger
}

func NewEngine(creds repository.MFARepository, principals repository.PrincipalRepository, c cache.Client, issuerName string) *Engine {
	return &Engine{
		creds:      creds,
		principals: principals,
		cache:      c,
		events:     events.Noop{},
		issuerName: issuerName,
		window:     DefaultWindow,
		now:        time.Now,
		log:        logger.Named("mfa"),
	}
}

// WithClock fija el reloj (tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithSessions conecta el revocador de sesiones que se dispara al
// deshabilitar MFA.
func (e *Engine) WithSessions(r SessionRevoker) *Engine {
	e.sessions = r
	return e
}

// WithEvents conecta el sink de eventos mfa.enabled / mfa.disabled.
func (e *Engine) WithEvents(p events.Publisher) *Engine {
	e.events = p
	return e
}

func (e *Engine) publish(ctx context.Context, typ events.Type, principalID string) {
	if e.events == nil {
		return
	}
	ev := events.Event{Type: typ, PrincipalID: principalID, At: e.now().UTC()}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("event publish failed", logger.String("type", string(typ)), logger.Err(err))
	}
}

// Setup genera secreto + recovery codes para el principal y deja la
// credencial en PENDING_VERIFICATION. Si ya hay una credencial ENABLED
// retorna ErrConflict: primero hay que deshabilitar probando posesión.
func (e *Engine) Setup(ctx context.Context, principalID, accountName string) (*SetupResult, error) {
	if cur, err := e.creds.Get(ctx, principalID); err == nil && cur.ConfirmedAt != nil {
		return nil, fmt.Errorf("%w: mfa already enabled", repository.ErrConflict)
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}

	_, secretB32, err := totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	codes, err := totp.GenerateRecoveryCodes()
	if err != nil {
		return nil, fmt.Errorf("generate recovery codes: %w", err)
	}

	secretEnc, err := secretbox.Encrypt(secretB32)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}

	if err := e.creds.Upsert(ctx, principalID, secretEnc); err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = tokens.SHA256Base64URL(totp.NormalizeRecoveryCode(c))
	}
	if err := e.creds.SetRecoveryCodes(ctx, principalID, hashes); err != nil {
		return nil, err
	}

	e.log.Info("mfa setup started", logger.PrincipalID(principalID))
	return &SetupResult{
		SecretB32:     secretB32,
		OTPAuthURL:    totp.OTPAuthURL(e.issuerName, accountName, secretB32),
		RecoveryCodes: codes,
	}, nil
}

// Verify chequea un código TOTP contra la credencial del principal. Un éxito
// mientras la credencial está PENDING_VERIFICATION la transiciona a ENABLED.
// El anti-replay por time-step persiste el último counter aceptado.
func (e *Engine) Verify(ctx context.Context, principalID, code string) (bool, error) {
	cred, err := e.creds.Get(ctx, principalID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	secretRaw, err := e.decryptSecret(cred.SecretEncrypted)
	if err != nil {
		return false, err
	}

	ok, counter := totp.Verify(secretRaw, code, e.now().UTC(), e.window, cred.LastCounter)
	if !ok {
		return false, nil
	}

	if cred.ConfirmedAt == nil {
		now := e.now().UTC()
		if err := e.creds.Confirm(ctx, principalID, now); err != nil {
			return false, err
		}
		if err := e.principals.SetMFAEnabled(ctx, principalID, true); err != nil {
			return false, err
		}
		e.log.Info("mfa enabled", logger.PrincipalID(principalID))
		e.publish(ctx, events.TypeMFAEnabled, principalID)
	}
	if err := e.creds.UpdateLastCounter(ctx, principalID, counter); err != nil {
		return false, err
	}
	return true, nil
}

// UseRecoveryCode consume un recovery code. Cada code sirve exactamente una
// vez: de N callers concurrentes con el mismo code, a lo sumo uno recibe true.
func (e *Engine) UseRecoveryCode(ctx context.Context, principalID, code string) (bool, error) {
	norm := totp.NormalizeRecoveryCode(code)
	if norm == "" {
		return false, nil
	}
	used, err := e.creds.UseRecoveryCode(ctx, principalID, tokens.SHA256Base64URL(norm))
	if err != nil {
		return false, err
	}
	if used {
		e.log.Info("recovery code consumed", logger.PrincipalID(principalID))
	}
	return used, nil
}

// Disable destruye la credencial completa (secreto + codes). Exige probar
// posesión con un TOTP vigente o un recovery code: deshabilitar sin re-probar
// está prohibido.
func (e *Engine) Disable(ctx context.Context, principalID, code string) error {
	cred, err := e.creds.Get(ctx, principalID)
	if err != nil {
		return err
	}
	if cred.ConfirmedAt == nil {
		// PENDING: nunca se llegó a habilitar, el wipe no exige proof.
		return e.wipe(ctx, principalID)
	}

	proved, err := e.prove(ctx, principalID, cred, code)
	if err != nil {
		return err
	}
	if !proved {
		return repository.ErrUnauthorized
	}
	if err := e.wipe(ctx, principalID); err != nil {
		return err
	}

	// Apagar un factor confirmado revoca todas las sesiones: lo emitido
	// bajo MFA no sigue valiendo sin MFA.
	if e.sessions != nil {
		n, err := e.sessions.RevokeAllForPrincipal(ctx, principalID)
		if err != nil {
			return fmt.Errorf("revoke sessions after mfa disable: %w", err)
		}
		e.log.Info("sessions revoked after mfa disable",
			logger.PrincipalID(principalID), logger.Count(n))
	}
	e.publish(ctx, events.TypeMFADisabled, principalID)
	return nil
}

// RegenerateRecoveryCodes invalida todos los codes vigentes y emite un set
// nuevo. Solo sobre credencial ENABLED, y exige la misma prueba de posesión
// que Disable.
func (e *Engine) RegenerateRecoveryCodes(ctx context.Context, principalID, code string) ([]string, error) {
	cred, err := e.creds.Get(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if cred.ConfirmedAt == nil {
		return nil, fmt.Errorf("%w: mfa not enabled", repository.ErrConflict)
	}

	proved, err := e.prove(ctx, principalID, cred, code)
	if err != nil {
		return nil, err
	}
	if !proved {
		return nil, repository.ErrUnauthorized
	}

	codes, err := totp.GenerateRecoveryCodes()
	if err != nil {
		return nil, fmt.Errorf("generate recovery codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = tokens.SHA256Base64URL(totp.NormalizeRecoveryCode(c))
	}
	if err := e.creds.SetRecoveryCodes(ctx, principalID, hashes); err != nil {
		return nil, err
	}
	e.log.Info("recovery codes regenerated", logger.PrincipalID(principalID))
	return codes, nil
}

// Enabled informa si el principal tiene MFA confirmado.
func (e *Engine) Enabled(ctx context.Context, principalID string) (bool, error) {
	cred, err := e.creds.Get(ctx, principalID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return cred.ConfirmedAt != nil, nil
}

// IssueChallenge emite el token de desafío post-password: correlaciona
// identidad, no autoriza nada. Single-use, TTL corto.
func (e *Engine) IssueChallenge(ctx context.Context, principalID string) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	key := challengePrefix + tokens.SHA256Base64URL(raw)
	if err := e.cache.Set(ctx, key, []byte(principalID), ChallengeTTL); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	return raw, nil
}

// ConsumeChallenge canjea el challenge token por el principal asociado.
// TakeOnce garantiza que un challenge no sirve dos veces.
func (e *Engine) ConsumeChallenge(ctx context.Context, raw string) (string, error) {
	key := challengePrefix + tokens.SHA256Base64URL(raw)
	val, found, err := e.cache.TakeOnce(ctx, key)
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	if !found {
		return "", repository.ErrUnauthorized
	}
	return string(val), nil
}

// prove valida code como TOTP o, si no matchea, como recovery code.
func (e *Engine) prove(ctx context.Context, principalID string, cred *repository.MFACredential, code string) (bool, error) {
	secretRaw, err := e.decryptSecret(cred.SecretEncrypted)
	if err != nil {
		return false, err
	}
	if ok, counter := totp.Verify(secretRaw, code, e.now().UTC(), e.window, cred.LastCounter); ok {
		if err := e.creds.UpdateLastCounter(ctx, principalID, counter); err != nil {
			return false, err
		}
		return true, nil
	}
	return e.UseRecoveryCode(ctx, principalID, code)
}

func (e *Engine) wipe(ctx context.Context, principalID string) error {
	if err := e.creds.Delete(ctx, principalID); err != nil && !repository.IsNotFound(err) {
		return err
	}
	if err := e.principals.SetMFAEnabled(ctx, principalID, false); err != nil {
		return err
	}
	e.log.Info("mfa disabled", logger.PrincipalID(principalID))
	return nil
}

func (e *Engine) decryptSecret(enc string) ([]byte, error) {
	b32, err := secretbox.Decrypt(enc)
	if err != nil {
		if errors.Is(err, secretbox.ErrCipher) {
			return nil, repository.ErrSecurity
		}
		return nil, err
	}
	raw, err := totp.DecodeSecret(b32)
	if err != nil {
		return nil, repository.ErrSecurity
	}
	return raw, nil
}
