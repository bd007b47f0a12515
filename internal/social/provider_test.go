package social

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	return "https://example.com/auth?state=" + state, nil
}
func (f *fakeProvider) FetchIdentity(ctx context.Context, code, nonce string) (*Identity, error) {
	return &Identity{Provider: f.name, ProviderUserID: "u1"}, nil
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeProvider{name: "google"}))

	err := r.Register(&fakeProvider{name: "google"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, r.Register(&fakeProvider{name: "github"}))
	assert.Equal(t, []string{"github", "google"}, r.Names())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("gitlab")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExchangeCodes_SingleUse(t *testing.T) {
	e := NewExchangeCodes(cache.NewMemory("test:"))
	ctx := context.Background()

	grant := ExchangeGrant{
		PrincipalID: "p1",
		Scope:       repository.TenantScope{OrgID: "o", ProjectID: "p", Environment: "prod"},
		Provider:    "google",
	}
	code, err := e.Issue(ctx, grant)
	require.NoError(t, err)
	require.NotEmpty(t, code)

	got, err := e.Redeem(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, grant, *got)

	// Segundo canje: mismo error genérico que un code inexistente.
	_, err = e.Redeem(ctx, code)
	assert.ErrorIs(t, err, repository.ErrUnauthorized)

	_, err = e.Redeem(ctx, "never-issued")
	assert.ErrorIs(t, err, repository.ErrUnauthorized)
}
