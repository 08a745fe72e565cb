package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func TestStopOrderUniquePerRoute(t *testing.T) {
	db := testutil.SetupTestDB(t)
	alpha := testutil.CreateRoute(t, db, "Alpha")
	beta := testutil.CreateRoute(t, db, "Beta")
	testutil.CreateStop(t, db, alpha.ID, 1, "Gate", 17.40, 78.47)

	dup := models.Stop{RouteID: alpha.ID, Order: 1, Name: "Library", Latitude: 17.41, Longitude: 78.48}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	other := models.Stop{RouteID: beta.ID, Order: 1, Name: "Gate", Latitude: 17.40, Longitude: 78.47}
	require.NoError(t, db.Create(&other).Error, "the same order on another route is allowed")

	next := models.Stop{RouteID: alpha.ID, Order: 2, Name: "Library", Latitude: 17.41, Longitude: 78.48}
	require.NoError(t, db.Create(&next).Error)
}

func TestScheduleUniquePerRouteDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	route := testutil.CreateRoute(t, db, "Alpha")

	first := models.RouteSchedule{RouteID: route.ID, DayOfWeek: 1, DepartureTime: "07:30", ArrivalTime: "08:15", IsActive: true}
	require.NoError(t, db.Create(&first).Error)

	dup := models.RouteSchedule{RouteID: route.ID, DayOfWeek: 1, DepartureTime: "09:00", ArrivalTime: "09:45", IsActive: true}
	assert.ErrorIs(t, db.Create(&dup).Error, gorm.ErrDuplicatedKey)
}
