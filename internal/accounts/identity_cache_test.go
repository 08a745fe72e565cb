package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func TestIdentityCacheLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "lakshmi", "pass", models.RoleStudent)
	cache := NewIdentityCache(db, 16, time.Minute)

	id, err := cache.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, id.Authenticated)
	assert.Equal(t, models.RoleStudent, id.Role)
	assert.Equal(t, "lakshmi", id.Username)

	_, err = cache.Lookup(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityCacheServesStaleUntilInvalidated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "suresh", "pass", models.RoleStudent)
	cache := NewIdentityCache(db, 16, time.Minute)

	_, err := cache.Lookup(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&user).Update("role", models.RoleDriver).Error)
	id, err := cache.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, id.Role)

	cache.Invalidate(user.ID)
	id, err = cache.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, id.Role)
}

func TestIdentityCacheSkipsDisabledAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "disabled", "pass", models.RoleAdmin)
	require.NoError(t, db.Model(&user).Update("is_active", false).Error)

	cache := NewIdentityCache(db, 16, time.Minute)
	id, err := cache.Lookup(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, id.Authenticated)
}
