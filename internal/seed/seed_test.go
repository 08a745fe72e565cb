package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

const fixture = `
routes:
  - name: R7
    bus_number: TS07
    start_location: Main Gate
    end_location: Engineering Block
    stops:
      - {name: Main Gate, latitude: 17.40, longitude: 78.47, arrival_time: "07:30"}
      - {name: Library, latitude: 17.41, longitude: 78.48}
    schedules:
      - {day_of_week: 0, departure_time: "07:15", arrival_time: "08:00"}
accounts:
  - {username: admin, password: admin123, role: admin, is_superuser: true}
  - {username: drv7, password: drive123, role: driver, license_number: DL-7, route: R7, verified: true}
`

func TestParseAssignsStopOrder(t *testing.T) {
	f, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, f.Routes, 1)
	assert.Equal(t, 1, f.Routes[0].Stops[0].Order)
	assert.Equal(t, 2, f.Routes[0].Stops[1].Order)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse(strings.NewReader("routes:\n  - name: X\n    stops:\n      - {name: A, order: 1}\n      - {name: B, order: 1}\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("routes:\n  - name: X\n    colour: red\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("routes:\n  - name: X\n    schedules:\n      - {day_of_week: 7}\n"))
	assert.Error(t, err)
}

func TestApplyIsRepeatable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	f, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)

	res, err := Apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Routes: 1, Stops: 2, Schedules: 1, Accounts: 2}, res)

	res, err = Apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SkippedAccounts)

	var stops int64
	require.NoError(t, db.Model(&models.Stop{}).Count(&stops).Error)
	assert.Equal(t, int64(2), stops)

	var driver models.Driver
	require.NoError(t, db.Preload("AssignedRoute").First(&driver).Error)
	require.NotNil(t, driver.AssignedRoute)
	assert.Equal(t, "R7", driver.AssignedRoute.Name)
	assert.True(t, driver.CanTrack())
}
