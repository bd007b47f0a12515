package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

var testScope = repository.TenantScope{OrgID: "org1", ProjectID: "proj1", Environment: "prod"}

func identity(email string, verified bool) Identity {
	return Identity{
		Provider:       "google",
		ProviderUserID: "g-123",
		Email:          email,
		EmailVerified:  verified,
		DisplayName:    "Ada L",
	}
}

func TestDecide_ExistingConnectionReusesPrincipal(t *testing.T) {
	conn := &repository.OAuthConnection{
		ID:          "c1",
		PrincipalID: "p1",
		Provider:    "google",
		Email:       "ada@example.com",
	}

	d, err := Decide(Input{Scope: testScope, Identity: identity("ada@example.com", false), Connection: conn})
	require.NoError(t, err)
	assert.Equal(t, ActionUseExisting, d.Action)
	assert.Equal(t, "p1", d.PrincipalID)
	assert.False(t, d.UpdateConnectionEmail)
	assert.Nil(t, d.StagePrincipalEmail)
	assert.Nil(t, d.NewPrincipal)
}

func TestDecide_ExistingConnectionStagesEmailChange(t *testing.T) {
	conn := &repository.OAuthConnection{PrincipalID: "p1", Email: "old@example.com"}

	d, err := Decide(Input{Scope: testScope, Identity: identity("New@Example.com", true), Connection: conn})
	require.NoError(t, err)
	assert.Equal(t, ActionUseExisting, d.Action)
	assert.True(t, d.UpdateConnectionEmail)
	require.NotNil(t, d.StagePrincipalEmail)
	assert.Equal(t, "new@example.com", d.StagePrincipalEmail.Email)
	assert.True(t, d.StagePrincipalEmail.Verified)
}

func TestDecide_ExistingConnectionPropagatesVerification(t *testing.T) {
	conn := &repository.OAuthConnection{PrincipalID: "p1", Email: "ada@example.com"}

	d, err := Decide(Input{Scope: testScope, Identity: identity("ada@example.com", true), Connection: conn})
	require.NoError(t, err)
	assert.False(t, d.UpdateConnectionEmail)
	require.NotNil(t, d.StagePrincipalEmail)
	assert.True(t, d.StagePrincipalEmail.Verified)
}

func TestDecide_UnverifiedEmailCannotTakeOverVerifiedAccount(t *testing.T) {
	owner := &repository.Principal{ID: "p1", Email: "ada@example.com", EmailVerified: true}

	_, err := Decide(Input{Scope: testScope, Identity: identity("ada@example.com", false), EmailOwner: owner})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestDecide_VerifiedEmailLinksToExistingPrincipal(t *testing.T) {
	owner := &repository.Principal{ID: "p1", Email: "ada@example.com", EmailVerified: true}

	d, err := Decide(Input{Scope: testScope, Identity: identity("ada@example.com", true), EmailOwner: owner})
	require.NoError(t, err)
	assert.Equal(t, ActionLink, d.Action)
	assert.Equal(t, "p1", d.PrincipalID)
	require.NotNil(t, d.StagePrincipalEmail)
	assert.True(t, d.StagePrincipalEmail.Verified)
}

func TestDecide_NoMatchCreatesNewPrincipal(t *testing.T) {
	d, err := Decide(Input{Scope: testScope, Identity: identity("Ada@Example.com", true)})
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, d.Action)
	require.NotNil(t, d.NewPrincipal)
	assert.Equal(t, testScope, d.NewPrincipal.Scope)
	assert.Equal(t, "ada@example.com", d.NewPrincipal.Email)
	assert.True(t, d.NewPrincipal.EmailVerified)
	assert.Equal(t, "Ada L", d.NewPrincipal.DisplayName)
}

func TestDecide_UnverifiedNoMatchStillCreates(t *testing.T) {
	d, err := Decide(Input{Scope: testScope, Identity: identity("ada@example.com", false)})
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, d.Action)
	assert.False(t, d.NewPrincipal.EmailVerified)
}

func TestDecide_RejectsIncompleteIdentity(t *testing.T) {
	_, err := Decide(Input{Scope: testScope, Identity: Identity{Provider: "google"}})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}
