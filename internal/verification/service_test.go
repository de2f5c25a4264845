package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store/memory"
)

func newTestService() Service {
	clock := ledger.FixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewService(memory.New(), nil, clock)
}

func TestRegisterProject(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	id, err := service.RegisterProject(ctx, "owner1", "Carbon sequestration project")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	project, err := service.GetProjectInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, ledger.Principal("owner1"), project.Owner)
	assert.Equal(t, "Carbon sequestration project", project.Description)
	assert.False(t, project.Verified)
	assert.Empty(t, project.Verifier)
}

func TestRegisterProjectAssignsSequentialIDs(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	first, err := service.RegisterProject(ctx, "owner1", "first")
	require.NoError(t, err)
	second, err := service.RegisterProject(ctx, "owner2", "second")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
}

func TestVerifyProject(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	id, err := service.RegisterProject(ctx, "owner1", "Carbon sequestration project")
	require.NoError(t, err)
	require.NoError(t, service.AddVerifier(ctx, "verifier1"))

	require.NoError(t, service.VerifyProject(ctx, id, "verifier1"))

	project, err := service.GetProjectInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.True(t, project.Verified)
	assert.Equal(t, ledger.Principal("verifier1"), project.Verifier)
	require.NotNil(t, project.VerifiedAt)
}

func TestVerifyProjectUnknownID(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	require.NoError(t, service.AddVerifier(ctx, "verifier1"))
	err := service.VerifyProject(ctx, 42, "verifier1")
	assert.True(t, ledger.IsKind(err, ledger.KindNotFound))
}

func TestVerifyProjectUnauthorized(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	id, err := service.RegisterProject(ctx, "owner1", "Carbon sequestration project")
	require.NoError(t, err)

	err = service.VerifyProject(ctx, id, "unauthorized")
	assert.True(t, ledger.IsKind(err, ledger.KindUnauthorized))

	// Failed verification leaves the record unchanged.
	project, err := service.GetProjectInfo(ctx, id)
	require.NoError(t, err)
	assert.False(t, project.Verified)
	assert.Empty(t, project.Verifier)
}

func TestVerifyProjectAlreadyVerified(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	id, err := service.RegisterProject(ctx, "owner1", "Carbon sequestration project")
	require.NoError(t, err)
	require.NoError(t, service.AddVerifier(ctx, "verifier1"))
	require.NoError(t, service.VerifyProject(ctx, id, "verifier1"))

	err = service.VerifyProject(ctx, id, "verifier1")
	assert.True(t, ledger.IsKind(err, ledger.KindAlreadyVerified))
}

func TestAddAndRemoveVerifier(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	require.NoError(t, service.AddVerifier(ctx, "verifier1"))
	ok, err := service.IsVerifier(ctx, "verifier1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, service.RemoveVerifier(ctx, "verifier1"))
	ok, err = service.IsVerifier(ctx, "verifier1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Both directions are idempotent.
	require.NoError(t, service.RemoveVerifier(ctx, "verifier1"))
	require.NoError(t, service.AddVerifier(ctx, "verifier2"))
	require.NoError(t, service.AddVerifier(ctx, "verifier2"))
}

func TestGetProjectInfoUnknownID(t *testing.T) {
	service := newTestService()

	project, err := service.GetProjectInfo(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, project)
}
