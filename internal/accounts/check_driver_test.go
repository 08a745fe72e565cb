package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func TestCheckDriverReady(t *testing.T) {
	db := testutil.SetupTestDB(t)
	route := testutil.CreateRoute(t, db, "R7")
	testutil.CreateDriver(t, db, "testdriver", "testdriver123", testutil.UintPtr(route.ID), true)

	report, err := CheckDriver(context.Background(), db, "testdriver", "testdriver123")
	require.NoError(t, err)
	assert.True(t, report.Ready())
	require.Len(t, report.Checks, 5)
	assert.Equal(t, "authentication", report.Checks[4].Name)
}

func TestCheckDriverStopsAtFirstFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.CreateUser(t, db, "student", "pw", models.RoleStudent)
	testutil.CreateDriver(t, db, "unassigned", "pw", nil, true)

	report, err := CheckDriver(ctx, db, "ghost", "")
	require.NoError(t, err)
	assert.False(t, report.Ready())
	assert.Len(t, report.Checks, 1)

	report, err = CheckDriver(ctx, db, "student", "")
	require.NoError(t, err)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "role", report.Checks[1].Name)
	assert.False(t, report.Checks[1].OK)

	report, err = CheckDriver(ctx, db, "unassigned", "wrong")
	require.NoError(t, err)
	assert.False(t, report.Ready())
	last := report.Checks[len(report.Checks)-1]
	assert.Equal(t, "route", last.Name)
	assert.False(t, last.OK)
}
