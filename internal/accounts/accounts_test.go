package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func TestCreateDefaultsToStudent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	user, err := Create(context.Background(), db, NewAccount{Username: "21B81A0501", Name: "Asha", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.IsActive)
	require.NotNil(t, user.Student)
	assert.Equal(t, "21B81A0501", user.Student.HallTicket)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, models.RoleStudent, stored.Role)
	assert.NotEqual(t, "secret", stored.Password)
}

func TestCreateEveryAccountHasARole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := Create(ctx, db, NewAccount{Username: "s1", Password: "pass"})
	require.NoError(t, err)
	_, err = Create(ctx, db, NewAccount{Username: "d1", Password: "pass", Role: "driver", LicenseNumber: "TS09-1234"})
	require.NoError(t, err)
	_, err = Create(ctx, db, NewAccount{Username: "a1", Password: "pass", Role: "ADMIN"})
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.True(t, u.Role.Valid(), "user %s has role %q", u.Username, u.Role)
	}
}

func TestCreateDriverProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	route := testutil.CreateRoute(t, db, "R7")

	user, err := Create(context.Background(), db, NewAccount{
		Username:      "ravi",
		Password:      "pass",
		Role:          "driver",
		LicenseNumber: "TS09-0001",
		RouteID:       &route.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, user.Driver)
	assert.True(t, user.Driver.IsActive)
	assert.False(t, user.Driver.IsVerified)
	require.NotNil(t, user.Driver.AssignedRouteID)
	assert.Equal(t, route.ID, *user.Driver.AssignedRouteID)
}

func TestCreateRejectsBadInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := Create(ctx, db, NewAccount{Username: "x", Password: "pass", Role: "conductor"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = Create(ctx, db, NewAccount{Username: "", Password: "pass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Create(ctx, db, NewAccount{Username: "d", Password: "pass", Role: "driver"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateDuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := Create(ctx, db, NewAccount{Username: "dup", Password: "pass"})
	require.NoError(t, err)
	_, err = Create(ctx, db, NewAccount{Username: "dup", Password: "other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreateProfileConflictRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := Create(ctx, db, NewAccount{Username: "first", Password: "pass", HallTicket: "HT1"})
	require.NoError(t, err)
	_, err = Create(ctx, db, NewAccount{Username: "second", Password: "pass", HallTicket: "HT1"})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "second").Count(&count).Error)
	assert.Zero(t, count, "account must not survive a failed profile insert")
}

func TestAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.CreateUser(t, db, "meena", "right", models.RoleStudent)

	user, err := Authenticate(ctx, db, "meena", "right")
	require.NoError(t, err)
	assert.Equal(t, "meena", user.Username)

	_, err = Authenticate(ctx, db, "meena", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(ctx, db, "nobody", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "meena").Update("is_active", false).Error)
	_, err = Authenticate(ctx, db, "meena", "right")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestSetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "kiran", "old-pass", models.RoleDriver)

	require.NoError(t, SetPassword(ctx, db, user.ID, "new-pass"))
	_, err := Authenticate(ctx, db, "kiran", "new-pass")
	assert.NoError(t, err)

	assert.ErrorIs(t, SetPassword(ctx, db, 9999, "whatever"), ErrNotFound)
	assert.ErrorIs(t, SetPassword(ctx, db, user.ID, "x"), ErrInvalidInput)
}
