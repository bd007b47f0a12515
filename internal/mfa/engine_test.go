package mfa

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/events"
	"github.com/dropDatabas3/authcore/internal/refresh"
	"github.com/dropDatabas3/authcore/internal/security/secretbox"
	"github.com/dropDatabas3/authcore/internal/security/totp"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	secretbox.UnsafeResetSecretBoxForTests()
	require.NoError(t, secretbox.UnsafeSetMasterKeyForTests(make([]byte, 32)))

	st := memory.New()
	e := NewEngine(st.MFA(), st.Principals(), cache.NewMemory("test:"), "authcore-test")
	return e, st
}

func seedPrincipal(t *testing.T, st *memory.Store, id string) {
	t.Helper()
	err := st.Principals().Create(context.Background(), &repository.Principal{
		ID:    id,
		Kind:  repository.KindEndUser,
		Scope: repository.TenantScope{OrgID: "o", ProjectID: "p", Environment: "dev"},
		Email: id + "@example.com",
	})
	require.NoError(t, err)
}

func codeFor(t *testing.T, secretB32 string, at time.Time) string {
	t.Helper()
	raw, err := totp.DecodeSecret(secretB32)
	require.NoError(t, err)
	return totp.GenerateAt(raw, at)
}

func TestSetup_ReturnsSecretAndCodesOnce(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SecretB32)
	assert.Contains(t, res.OTPAuthURL, "otpauth://totp/")
	assert.Len(t, res.RecoveryCodes, totp.RecoveryCodeCount)

	// El secreto no queda en claro en el repo.
	cred, err := st.MFA().Get(ctx, "p1")
	require.NoError(t, err)
	assert.NotEqual(t, res.SecretB32, cred.SecretEncrypted)
	assert.Nil(t, cred.ConfirmedAt)

	enabled, err := e.Enabled(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestVerify_ConfirmsPendingCredential(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	assert.True(t, ok)

	enabled, err := e.Enabled(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, enabled)

	p, err := st.Principals().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.MFAEnabled)
}

func TestVerify_RejectsReplayedStep(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	code := codeFor(t, res.SecretB32, now)
	ok, err := e.Verify(ctx, "p1", code)
	require.NoError(t, err)
	require.True(t, ok)

	// Mismo código, mismo time-step: rechazado.
	ok, err = e.Verify(ctx, "p1", code)
	require.NoError(t, err)
	assert.False(t, ok)

	// Step siguiente vuelve a aceptar.
	now = now.Add(totp.Period * time.Second)
	ok, err = e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_WrongCodeAndNoCredential(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	ok, err := e.Verify(ctx, "p1", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	ok, err = e.Verify(ctx, "p1", "000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetup_EnabledCredentialConflicts(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.Setup(ctx, "p1", "p1@example.com")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestSetup_PendingCanBeReplaced(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	first, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	second, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.SecretB32, second.SecretB32)
}

func TestUseRecoveryCode_SingleUse(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	code := res.RecoveryCodes[0]
	ok, err := e.UseRecoveryCode(ctx, "p1", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.UseRecoveryCode(ctx, "p1", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUseRecoveryCode_NormalizesInput(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	// Minúsculas y sin guiones: mismo code.
	lower := ""
	for _, r := range res.RecoveryCodes[1] {
		if r == '-' {
			continue
		}
		lower += string(r | 0x20)
	}
	ok, err := e.UseRecoveryCode(ctx, "p1", lower)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUseRecoveryCode_ConcurrentSingleClaim(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	claims := make([]bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			claims[i], _ = e.UseRecoveryCode(ctx, "p1", res.RecoveryCodes[2])
		}(i)
	}
	wg.Wait()

	got := 0
	for _, c := range claims {
		if c {
			got++
		}
	}
	assert.Equal(t, 1, got)
}

func TestDisable_RequiresProof(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	require.True(t, ok)

	// Sin proof válido: prohibido.
	err = e.Disable(ctx, "p1", "000000")
	assert.ErrorIs(t, err, repository.ErrUnauthorized)

	enabled, err := e.Enabled(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, enabled)

	// Con un recovery code válido: wipe completo.
	require.NoError(t, e.Disable(ctx, "p1", res.RecoveryCodes[0]))

	enabled, err = e.Enabled(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, enabled)

	// Y un nuevo setup arranca de cero.
	_, err = e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
}

func TestDisable_WithFreshTOTP(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	require.True(t, ok)

	// Próximo step: el code es fresco (el del confirm ya fue consumido).
	now = now.Add(totp.Period * time.Second)
	require.NoError(t, e.Disable(ctx, "p1", codeFor(t, res.SecretB32, now)))

	p, err := st.Principals().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, p.MFAEnabled)
}

func TestDisable_RevokesSessionsAndPublishes(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	sink := events.NewMemory()
	sessions := refresh.NewService(st.Tokens())
	e.WithSessions(sessions).WithEvents(sink)

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	require.True(t, ok)

	// Sesión emitida mientras MFA estaba habilitado.
	issued, err := sessions.Issue(ctx, "p1", refresh.Meta{})
	require.NoError(t, err)

	now = now.Add(totp.Period * time.Second)
	require.NoError(t, e.Disable(ctx, "p1", codeFor(t, res.SecretB32, now)))

	// La sesión no sobrevive al disable.
	_, err = sessions.Rotate(ctx, issued.Raw, refresh.Meta{})
	assert.ErrorIs(t, err, repository.ErrUnauthorized)

	assert.Len(t, sink.ByType(events.TypeMFAEnabled), 1)
	assert.Len(t, sink.ByType(events.TypeMFADisabled), 1)
}

func TestDisable_PendingWipeKeepsSessions(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	sessions := refresh.NewService(st.Tokens())
	e.WithSessions(sessions)

	// Credencial PENDING: nunca llegó a habilitarse.
	_, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	issued, err := sessions.Issue(ctx, "p1", refresh.Meta{})
	require.NoError(t, err)

	require.NoError(t, e.Disable(ctx, "p1", ""))

	// Abortar un setup pendiente no toca las sesiones vigentes.
	_, err = sessions.Rotate(ctx, issued.Raw, refresh.Meta{})
	require.NoError(t, err)
}

func TestChallenge_SingleUse(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	raw, err := e.IssueChallenge(ctx, "p1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	pid, err := e.ConsumeChallenge(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "p1", pid)

	_, err = e.ConsumeChallenge(ctx, raw)
	assert.ErrorIs(t, err, repository.ErrUnauthorized)
}

func TestChallenge_UnknownTokenFails(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.ConsumeChallenge(context.Background(), "bogus")
	assert.ErrorIs(t, err, repository.ErrUnauthorized)
}

func TestRegenerateRecoveryCodes_RequiresProofAndInvalidatesOld(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0).UTC()
	e.WithClock(func() time.Time { return now })

	res, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)
	ok, err := e.Verify(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	require.True(t, ok)

	// sin prueba válida no hay regeneración
	_, err = e.RegenerateRecoveryCodes(ctx, "p1", "000000")
	assert.ErrorIs(t, err, repository.ErrUnauthorized)

	// con TOTP fresco (siguiente step, el anterior ya se consumió) sí
	now = now.Add(30 * time.Second)
	fresh, err := e.RegenerateRecoveryCodes(ctx, "p1", codeFor(t, res.SecretB32, now))
	require.NoError(t, err)
	assert.Len(t, fresh, totp.RecoveryCodeCount)

	// los codes viejos quedaron invalidados; los nuevos sirven una vez
	used, err := e.UseRecoveryCode(ctx, "p1", res.RecoveryCodes[0])
	require.NoError(t, err)
	assert.False(t, used)

	used, err = e.UseRecoveryCode(ctx, "p1", fresh[0])
	require.NoError(t, err)
	assert.True(t, used)
}

func TestRegenerateRecoveryCodes_PendingCredentialConflicts(t *testing.T) {
	e, st := newEngine(t)
	seedPrincipal(t, st, "p1")
	ctx := context.Background()

	_, err := e.Setup(ctx, "p1", "p1@example.com")
	require.NoError(t, err)

	_, err = e.RegenerateRecoveryCodes(ctx, "p1", "000000")
	assert.ErrorIs(t, err, repository.ErrConflict)
}
