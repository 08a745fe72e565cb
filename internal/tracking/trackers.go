package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

// Trackers lists every current-location row with its stop.
func (s *Service) Trackers(ctx context.Context, activeOnly bool) ([]models.BusLocation, error) {
	q := s.db.WithContext(ctx).Preload("CurrentStop").Order("updated_at desc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var locs []models.BusLocation
	if err := q.Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

// SetTrackersActive flips is_active on the given trackers and reports how
// many rows changed. Deactivated buses drop out of the nearby query until
// their driver pushes again.
func (s *Service) SetTrackersActive(ctx context.Context, ids []uint, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.BusLocation{}).
		Where("id IN ?", ids).
		Update("is_active", active)
	return res.RowsAffected, res.Error
}

// ErrorReport is a GPS problem submitted by a driver.
type ErrorReport struct {
	Type       string
	Message    string
	IsCritical bool
}

// ReportError stores a location error against the driver's route.
func (s *Service) ReportError(ctx context.Context, driver *models.Driver, in ErrorReport) (*models.LocationError, error) {
	errType := models.LocationErrorType(strings.ToLower(strings.TrimSpace(in.Type)))
	if errType == "" {
		errType = models.ErrorUnknown
	}
	if !errType.Valid() {
		return nil, fmt.Errorf("%w: error_type %q", ErrInvalidInput, in.Type)
	}
	if driver.AssignedRouteID == nil {
		return nil, ErrNoRoute
	}

	rec := models.LocationError{
		RouteID:      *driver.AssignedRouteID,
		DriverID:     &driver.ID,
		ErrorType:    errType,
		ErrorMessage: in.Message,
		IsCritical:   in.IsCritical,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}

	entry := logrus.WithFields(logrus.Fields{
		"route_id":   rec.RouteID,
		"driver_id":  driver.ID,
		"error_type": rec.ErrorType,
	})
	if rec.IsCritical {
		entry.Warn("Critical location error reported.")
	} else {
		entry.Info("Location error reported.")
	}
	return &rec, nil
}

// ErrorFilter narrows LocationErrors.
type ErrorFilter struct {
	RouteID    *uint
	Type       string
	Critical   *bool
	Unresolved bool
}

func (s *Service) LocationErrors(ctx context.Context, f ErrorFilter) ([]models.LocationError, error) {
	q := s.db.WithContext(ctx).Order("timestamp desc")
	if f.RouteID != nil {
		q = q.Where("route_id = ?", *f.RouteID)
	}
	if f.Type != "" {
		q = q.Where("error_type = ?", f.Type)
	}
	if f.Critical != nil {
		q = q.Where("is_critical = ?", *f.Critical)
	}
	if f.Unresolved {
		q = q.Where("resolved_at IS NULL")
	}
	var out []models.LocationError
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Bulk actions on location errors.
const (
	ErrorActionCritical    = "mark_critical"
	ErrorActionNotCritical = "mark_not_critical"
	ErrorActionResolved    = "mark_resolved"
)

var ErrUnknownAction = errors.New("unknown action")

func (s *Service) ApplyErrorAction(ctx context.Context, action string, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := s.db.WithContext(ctx).Model(&models.LocationError{}).Where("id IN ?", ids)
	var res *gorm.DB
	switch action {
	case ErrorActionCritical:
		res = q.Update("is_critical", true)
	case ErrorActionNotCritical:
		res = q.Update("is_critical", false)
	case ErrorActionResolved:
		res = q.Where("resolved_at IS NULL").Update("resolved_at", time.Now())
	default:
		return 0, ErrUnknownAction
	}
	return res.RowsAffected, res.Error
}
