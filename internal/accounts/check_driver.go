package accounts

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

// Check is one line of a driver readiness report.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// DriverReport walks everything a driver needs before it can log in and
// push locations. Later checks are skipped once one fails.
type DriverReport struct {
	Username string
	Checks   []Check
}

func (r *DriverReport) add(name string, ok bool, format string, args ...interface{}) bool {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
	return ok
}

// Ready reports whether every check passed.
func (r DriverReport) Ready() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

// CheckDriver builds a DriverReport. An empty password skips the
// authentication check.
func CheckDriver(ctx context.Context, db *gorm.DB, username, password string) (DriverReport, error) {
	report := DriverReport{Username: username}

	var user models.User
	err := db.WithContext(ctx).
		Preload("Driver").
		Preload("Driver.AssignedRoute").
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		report.add("user", false, "no account named %q", username)
		return report, nil
	}
	if err != nil {
		return report, err
	}
	if !report.add("user", user.IsActive, "id=%d active=%t", user.ID, user.IsActive) {
		return report, nil
	}
	if !report.add("role", user.Role == models.RoleDriver, "role=%s", user.Role) {
		return report, nil
	}

	d := user.Driver
	if d == nil {
		report.add("driver profile", false, "%s", "missing")
		return report, nil
	}
	if !report.add("driver profile", d.IsActive && d.IsVerified,
		"license=%s active=%t verified=%t", d.LicenseNumber, d.IsActive, d.IsVerified) {
		return report, nil
	}

	rt := d.AssignedRoute
	if rt == nil {
		report.add("route", false, "%s", "no route assigned")
		return report, nil
	}
	bus := "none"
	if rt.BusNumber != nil {
		bus = *rt.BusNumber
	}
	if !report.add("route", rt.IsActive, "route=%s bus=%s active=%t", rt.Name, bus, rt.IsActive) {
		return report, nil
	}

	if password != "" {
		ok := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
		detail := "failed"
		if ok {
			detail = "works"
		}
		report.add("authentication", ok, "%s", detail)
	}
	return report, nil
}
