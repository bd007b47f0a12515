package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

func newSvc(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.New().APIKeys())
}

func TestCreate_PrefixesByEnvironment(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	prod, err := svc.Create(ctx, "org1", "proj1", "prod", "backend")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prod.Raw, PrefixProd))

	dev, err := svc.Create(ctx, "org1", "proj1", "dev", "backend")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dev.Raw, PrefixDev))

	_, err = svc.Create(ctx, "org1", "proj1", "staging", "backend")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestCreate_RejectsEmptyName(t *testing.T) {
	svc := newSvc(t)
	_, err := svc.Create(context.Background(), "org1", "proj1", "prod", "   ")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestResolve_ReturnsScope(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "org1", "proj1", "prod", "backend")
	require.NoError(t, err)

	scope, err := svc.Resolve(ctx, created.Raw)
	require.NoError(t, err)
	assert.Equal(t, "org1", scope.OrgID)
	assert.Equal(t, "proj1", scope.ProjectID)
	assert.Equal(t, "prod", scope.Environment)
	assert.Equal(t, created.ID, scope.KeyID)
}

func TestResolve_AbsentAndRevokedFailIdentically(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "org1", "proj1", "prod", "backend")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, created.ID))

	_, errRevoked := svc.Resolve(ctx, created.Raw)
	_, errAbsent := svc.Resolve(ctx, "ak_prod_never-existed")

	// Mismo error exacto para ambos casos: sin oráculo de existencia.
	assert.ErrorIs(t, errRevoked, repository.ErrUnauthorized)
	assert.ErrorIs(t, errAbsent, repository.ErrUnauthorized)
	assert.Equal(t, errRevoked.Error(), errAbsent.Error())
}

func TestRevokeAllByProject(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "org1", "proj1", "prod", "a")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "org1", "proj1", "dev", "b")
	require.NoError(t, err)
	other, err := svc.Create(ctx, "org1", "proj2", "prod", "c")
	require.NoError(t, err)

	n, err := svc.RevokeAllByProject(ctx, "proj1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Resolve(ctx, a.Raw)
	assert.ErrorIs(t, err, repository.ErrUnauthorized)
	_, err = svc.Resolve(ctx, b.Raw)
	assert.ErrorIs(t, err, repository.ErrUnauthorized)

	_, err = svc.Resolve(ctx, other.Raw)
	require.NoError(t, err)
}

func TestCreate_DuplicateNameConflicts(t *testing.T) {
	svc := newSvc(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "org1", "proj1", "prod", "backend")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "org1", "proj1", "prod", "backend")
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Mismo nombre en otro environment no conflictúa.
	_, err = svc.Create(ctx, "org1", "proj1", "dev", "backend")
	require.NoError(t, err)
}
