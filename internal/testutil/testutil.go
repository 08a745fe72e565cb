// Package testutil holds database fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campus_bus/internal/config"
	"campus_bus/internal/models"
)

// SetupTestDB opens a migrated in-memory SQLite database that is closed
// when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.OpenDB(config.TestSettings())
	require.NoError(t, err, "Failed to create database connection")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, config.Migrate(db), "Failed to migrate schema")
	return db
}

func CreateRoute(t *testing.T, db *gorm.DB, name string) models.Route {
	t.Helper()
	route := models.Route{
		Name:          name,
		StartLocation: "Main Gate",
		EndLocation:   "Campus",
		IsActive:      true,
	}
	require.NoError(t, db.Create(&route).Error)
	return route
}

func CreateStop(t *testing.T, db *gorm.DB, routeID uint, order int, name string, lat, lon float64) models.Stop {
	t.Helper()
	stop := models.Stop{RouteID: routeID, Order: order, Name: name, Latitude: lat, Longitude: lon}
	require.NoError(t, db.Create(&stop).Error)
	return stop
}

// CreateUser stores an account with a cheap password hash.
func CreateUser(t *testing.T, db *gorm.DB, username, password string, role models.Role) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Username: username,
		Name:     username,
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateSuperuser(t *testing.T, db *gorm.DB, username, password string) models.User {
	t.Helper()
	user := CreateUser(t, db, username, password, models.RoleAdmin)
	require.NoError(t, db.Model(&user).Update("is_superuser", true).Error)
	user.IsSuperuser = true
	return user
}

// CreateDriver stores a driver account and an active profile.
func CreateDriver(t *testing.T, db *gorm.DB, username, password string, routeID *uint, verified bool) (models.User, models.Driver) {
	t.Helper()
	user := CreateUser(t, db, username, password, models.RoleDriver)
	driver := models.Driver{
		UserID:          user.ID,
		LicenseNumber:   "LIC-" + username,
		AssignedRouteID: routeID,
		IsActive:        true,
		IsVerified:      verified,
	}
	require.NoError(t, db.Create(&driver).Error)
	return user, driver
}

func CreateStudent(t *testing.T, db *gorm.DB, username, password string) (models.User, models.Student) {
	t.Helper()
	user := CreateUser(t, db, username, password, models.RoleStudent)
	student := models.Student{UserID: user.ID, HallTicket: username}
	require.NoError(t, db.Create(&student).Error)
	return user, student
}

func UintPtr(v uint) *uint { return &v }

func Float64Ptr(v float64) *float64 { return &v }
