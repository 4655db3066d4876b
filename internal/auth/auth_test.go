package auth

import (
	"context"
	"testing"
	"time"

	"task-assigner/internal/apperr"
	"task-assigner/internal/models"
	"task-assigner/internal/testutil"
	"task-assigner/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	tok, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = NewTokens("other-secret", time.Hour).Parse(tok)
	assert.Error(t, err)

	_, err = tokens.Parse("garbage")
	assert.Error(t, err)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }

	tok, err := tokens.Issue(7)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tokens.Parse(tok)
	assert.Error(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Role: models.RoleManager})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), id.UserID)
	assert.True(t, id.Is(models.RoleManager))
	assert.False(t, id.Is(models.RoleAdmin))
}

type fixture struct {
	store    *users.Store
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := users.New(testutil.OpenDB(t))
	store.HashCost = bcrypt.MinCost
	return &fixture{
		store:    store,
		resolver: NewResolver(store, NewTokens("secret", time.Hour)),
	}
}

func TestLoginRequiresApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.store.Create(ctx, "Eve", "eve@example.com", "secret1", models.RoleEmployee)
	require.NoError(t, err)

	_, err = f.resolver.Login(ctx, "eve@example.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindUnapproved), "pending user: %v", err)
	assert.Equal(t, 403, apperr.KindOf(err).HTTPStatus())

	_, err = f.resolver.Login(ctx, "eve@example.com", "wrong-pass")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = f.resolver.Login(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.store.Approve(ctx, u.ID)
	require.NoError(t, err)

	logged, err := f.resolver.Login(ctx, "eve@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, err = f.store.Decline(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.resolver.Login(ctx, "eve@example.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindUnapproved))
}

func TestResolveRechecksApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.store.Create(ctx, "Mia", "mia@example.com", "secret1", models.RoleManager)
	require.NoError(t, err)
	_, err = f.store.Approve(ctx, u.ID)
	require.NoError(t, err)

	id, err := f.resolver.Resolve(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: u.ID, Role: models.RoleManager}, id)

	_, err = f.store.Decline(ctx, u.ID)
	require.NoError(t, err)

	_, err = f.resolver.Resolve(ctx, u.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnapproved))

	f.resolver.RecheckApproval = false
	_, err = f.resolver.Resolve(ctx, u.ID)
	assert.NoError(t, err)

	_, err = f.resolver.Resolve(ctx, 0)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	_, err = f.resolver.Resolve(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.store.Create(ctx, "Tom", "tom@example.com", "secret1", models.RoleAdmin)
	require.NoError(t, err)
	_, err = f.store.Approve(ctx, u.ID)
	require.NoError(t, err)

	tok, err := f.resolver.Tokens().Issue(u.ID)
	require.NoError(t, err)

	id, err := f.resolver.ResolveToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, id.Role)

	_, err = f.resolver.ResolveToken(ctx, "not.a.token")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}
