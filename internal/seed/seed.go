// Package seed loads routes, stops, schedules and accounts from a YAML
// fixture file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"campus_bus/internal/accounts"
	"campus_bus/internal/models"
)

type File struct {
	Routes   []Route   `yaml:"routes"`
	Accounts []Account `yaml:"accounts"`
}

type Route struct {
	Name          string     `yaml:"name"`
	BusNumber     string     `yaml:"bus_number"`
	StartLocation string     `yaml:"start_location"`
	EndLocation   string     `yaml:"end_location"`
	Inactive      bool       `yaml:"inactive"`
	Stops         []Stop     `yaml:"stops"`
	Schedules     []Schedule `yaml:"schedules"`
}

// Stop order defaults to its position in the list, starting at 1.
type Stop struct {
	Name        string  `yaml:"name"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	ArrivalTime string  `yaml:"arrival_time"`
	Order       int     `yaml:"order"`
}

type Schedule struct {
	DayOfWeek     int    `yaml:"day_of_week"`
	DepartureTime string `yaml:"departure_time"`
	ArrivalTime   string `yaml:"arrival_time"`
}

// Account may name a route for a driver's assignment or a student's
// active route.
type Account struct {
	Username      string `yaml:"username"`
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	Role          string `yaml:"role"`
	IsSuperuser   bool   `yaml:"is_superuser"`
	Phone         string `yaml:"phone"`
	HallTicket    string `yaml:"hall_ticket"`
	LicenseNumber string `yaml:"license_number"`
	Route         string `yaml:"route"`
	Verified      bool   `yaml:"verified"`
}

type Result struct {
	Routes          int
	Stops           int
	Schedules       int
	Accounts        int
	SkippedAccounts int
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, rt := range f.Routes {
		if strings.TrimSpace(rt.Name) == "" {
			return nil, fmt.Errorf("route %d has no name", i+1)
		}
		seen := map[int]bool{}
		for j := range rt.Stops {
			if rt.Stops[j].Order == 0 {
				f.Routes[i].Stops[j].Order = j + 1
			}
			o := f.Routes[i].Stops[j].Order
			if seen[o] {
				return nil, fmt.Errorf("route %q: duplicate stop order %d", rt.Name, o)
			}
			seen[o] = true
		}
		for _, s := range rt.Schedules {
			if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
				return nil, fmt.Errorf("route %q: day_of_week %d out of range", rt.Name, s.DayOfWeek)
			}
		}
	}
	return &f, nil
}

// Apply upserts routes by name, replacing their stops and schedules, then
// creates accounts that do not exist yet. Routes are written in a single
// transaction.
func Apply(ctx context.Context, db *gorm.DB, f *File) (Result, error) {
	var res Result
	routeIDs := map[string]uint{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rt := range f.Routes {
			id, err := upsertRoute(tx, rt)
			if err != nil {
				return fmt.Errorf("route %q: %w", rt.Name, err)
			}
			routeIDs[rt.Name] = id
			res.Routes++
			res.Stops += len(rt.Stops)
			res.Schedules += len(rt.Schedules)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	for _, a := range f.Accounts {
		in := accounts.NewAccount{
			Username:      a.Username,
			Name:          a.Name,
			Email:         a.Email,
			Password:      a.Password,
			Role:          a.Role,
			IsSuperuser:   a.IsSuperuser,
			Phone:         a.Phone,
			HallTicket:    a.HallTicket,
			LicenseNumber: a.LicenseNumber,
			IsVerified:    a.Verified,
		}
		if a.Route != "" {
			id, err := lookupRoute(ctx, db, routeIDs, a.Route)
			if err != nil {
				return res, fmt.Errorf("account %q: %w", a.Username, err)
			}
			in.RouteID = &id
		}
		_, err := accounts.Create(ctx, db, in)
		switch {
		case errors.Is(err, accounts.ErrUsernameTaken):
			logrus.WithField("username", a.Username).Info("Seed account exists, skipping.")
			res.SkippedAccounts++
		case err != nil:
			return res, fmt.Errorf("account %q: %w", a.Username, err)
		default:
			res.Accounts++
		}
	}
	return res, nil
}

func lookupRoute(ctx context.Context, db *gorm.DB, known map[string]uint, name string) (uint, error) {
	if id, ok := known[name]; ok {
		return id, nil
	}
	var route models.Route
	if err := db.WithContext(ctx).Where("name = ?", name).First(&route).Error; err != nil {
		return 0, fmt.Errorf("route %q: %w", name, err)
	}
	return route.ID, nil
}

func upsertRoute(tx *gorm.DB, rt Route) (uint, error) {
	var busNumber *string
	if b := strings.TrimSpace(rt.BusNumber); b != "" {
		busNumber = &b
	}

	var route models.Route
	err := tx.Where("name = ?", rt.Name).First(&route).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		route = models.Route{Name: rt.Name}
	case err != nil:
		return 0, err
	}
	route.BusNumber = busNumber
	route.StartLocation = rt.StartLocation
	route.EndLocation = rt.EndLocation
	route.IsActive = !rt.Inactive
	if err := tx.Save(&route).Error; err != nil {
		return 0, err
	}

	if err := tx.Model(&models.BusLocation{}).Where("route_id = ?", route.ID).Update("current_stop_id", nil).Error; err != nil {
		return 0, err
	}
	if err := tx.Unscoped().Where("route_id = ?", route.ID).Delete(&models.Stop{}).Error; err != nil {
		return 0, err
	}
	for _, s := range rt.Stops {
		stop := models.Stop{
			RouteID:     route.ID,
			Name:        s.Name,
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
			ArrivalTime: s.ArrivalTime,
			Order:       s.Order,
		}
		if err := tx.Create(&stop).Error; err != nil {
			return 0, err
		}
	}

	if err := tx.Unscoped().Where("route_id = ?", route.ID).Delete(&models.RouteSchedule{}).Error; err != nil {
		return 0, err
	}
	for _, s := range rt.Schedules {
		sched := models.RouteSchedule{
			RouteID:       route.ID,
			DayOfWeek:     s.DayOfWeek,
			DepartureTime: s.DepartureTime,
			ArrivalTime:   s.ArrivalTime,
			IsActive:      true,
		}
		if err := tx.Create(&sched).Error; err != nil {
			return 0, err
		}
	}
	return route.ID, nil
}
