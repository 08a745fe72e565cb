// Package tracking owns the live bus location: driver pushes, public reads,
// the nearby-bus query, the live feed and route trackers.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus_bus/internal/models"
)

var (
	ErrNotDriver      = errors.New("not a driver")
	ErrInvalidInput   = errors.New("invalid data")
	ErrDriverInactive = errors.New("driver is inactive or unverified")
	ErrNoRoute        = errors.New("driver has no assigned route")
	ErrNotStarted     = errors.New("bus not started yet")
	ErrRouteNotFound  = errors.New("route not found")
)

const (
	geohashPrecision = 6 // stored on every current location, ~1.2 km cells
	nearbyPrecision  = 5 // searched cell size, ~4.9 km

	DefaultStopRadius = 150.0 // meters
)

// Snapshot is the published view of a route's current location.
type Snapshot struct {
	RouteID       uint      `json:"route_id"`
	DriverID      *uint     `json:"driver_id,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Speed         *float64  `json:"speed,omitempty"`
	Heading       *float64  `json:"heading,omitempty"`
	CurrentStopID *uint     `json:"current_stop_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func snapshotOf(loc models.BusLocation) Snapshot {
	return Snapshot{
		RouteID:       loc.RouteID,
		DriverID:      loc.DriverID,
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		Speed:         loc.Speed,
		Heading:       loc.Heading,
		CurrentStopID: loc.CurrentStopID,
		UpdatedAt:     loc.UpdatedAt,
	}
}

type Service struct {
	db         *gorm.DB
	stopRadius float64
	mirror     Mirror
	hub        *Hub
}

type Option func(*Service)

func WithMirror(m Mirror) Option { return func(s *Service) { s.mirror = m } }

func WithHub(h *Hub) Option { return func(s *Service) { s.hub = h } }

func WithStopRadius(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.stopRadius = meters
		}
	}
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, stopRadius: DefaultStopRadius}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Hub() *Hub { return s.hub }

// DriverFor returns the driver profile of an account.
func (s *Service) DriverFor(ctx context.Context, userID uint) (*models.Driver, error) {
	var driver models.Driver
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&driver).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotDriver
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// Push records a driver's position as the current location of its assigned
// route and appends it to the GPS log. The last committed push wins.
func (s *Service) Push(ctx context.Context, driver *models.Driver, in PushInput) (*Snapshot, error) {
	if err := in.Validate(); err != nil {
		pushTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if !driver.IsActive || !driver.IsVerified {
		pushTotal.WithLabelValues("forbidden").Inc()
		return nil, ErrDriverInactive
	}
	if driver.AssignedRouteID == nil {
		pushTotal.WithLabelValues("forbidden").Inc()
		return nil, ErrNoRoute
	}
	routeID := *driver.AssignedRouteID

	var loc models.BusLocation
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		loc, err = s.upsert(ctx, driver.ID, routeID, in)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		logrus.WithField("route_id", routeID).Warn("Lost first-insert race for bus location, retrying as update.")
	}
	if err != nil {
		pushTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("update location for route %d: %w", routeID, err)
	}
	pushTotal.WithLabelValues("ok").Inc()

	snap := snapshotOf(loc)
	logrus.WithFields(logrus.Fields{
		"route_id":  routeID,
		"driver_id": driver.ID,
		"latitude":  snap.Latitude,
		"longitude": snap.Longitude,
	}).Debug("Bus location updated.")

	if s.hub != nil {
		s.hub.Publish(snap)
	}
	if s.mirror != nil {
		if err := s.mirror.Store(ctx, snap); err != nil {
			logrus.WithError(err).WithField("route_id", routeID).Warn("Failed to mirror bus location.")
		}
	}
	return &snap, nil
}

func (s *Service) upsert(ctx context.Context, driverID, routeID uint, in PushInput) (models.BusLocation, error) {
	var loc models.BusLocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stopID, err := nearestStopID(tx, routeID, in.Latitude, in.Longitude, s.stopRadius)
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("route_id = ?", routeID).First(&loc).Error
		fresh := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !fresh {
			return err
		}
		if fresh {
			loc = models.BusLocation{RouteID: routeID}
		}

		loc.DriverID = &driverID
		loc.Latitude = in.Latitude
		loc.Longitude = in.Longitude
		loc.Speed = in.Speed
		loc.Heading = in.Heading
		loc.CurrentStopID = stopID
		loc.CurrentStop = nil
		loc.Geohash = geohash.EncodeWithPrecision(in.Latitude, in.Longitude, geohashPrecision)
		loc.IsActive = true

		if fresh {
			err = tx.Create(&loc).Error
		} else {
			err = tx.Save(&loc).Error
		}
		if err != nil {
			return err
		}

		recordedAt := time.Now()
		if in.RecordedAt != nil {
			recordedAt = *in.RecordedAt
		}
		return tx.Create(&models.GPSLog{
			RouteID:   routeID,
			DriverID:  driverID,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			Accuracy:  in.Accuracy,
			Speed:     in.Speed,
			Heading:   in.Heading,
			Timestamp: recordedAt,
		}).Error
	})
	return loc, err
}

// Pull returns the current location of a route, ErrNotStarted when no
// driver has pushed yet.
func (s *Service) Pull(ctx context.Context, routeID uint) (*Snapshot, error) {
	if s.mirror != nil {
		snap, err := s.mirror.Load(ctx, routeID)
		if err != nil {
			logrus.WithError(err).WithField("route_id", routeID).Warn("Location mirror read failed, using database.")
		} else if snap != nil {
			pullTotal.WithLabelValues("mirror").Inc()
			return snap, nil
		}
	}

	var loc models.BusLocation
	err := s.db.WithContext(ctx).Where("route_id = ?", routeID).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pullTotal.WithLabelValues("not_started").Inc()
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, err
	}
	pullTotal.WithLabelValues("db").Inc()

	snap := snapshotOf(loc)
	if s.mirror != nil {
		if err := s.mirror.Fill(ctx, snap); err != nil {
			logrus.WithError(err).WithField("route_id", routeID).Debug("Failed to backfill location mirror.")
		}
	}
	return &snap, nil
}

// NearbyBus is an active bus found around a point.
type NearbyBus struct {
	RouteID        uint      `json:"route_id"`
	RouteName      string    `json:"route_name"`
	BusNumber      *string   `json:"bus_number"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_m"`
	CurrentStopID  *uint     `json:"current_stop_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Nearby lists active buses whose geohash cell is the point's cell or one
// of its neighbours, closest first.
func (s *Service) Nearby(ctx context.Context, lat, lon float64, limit int) ([]NearbyBus, error) {
	if err := validate.Var(lat, "gte=-90,lte=90"); err != nil {
		return nil, fmt.Errorf("%w: latitude", ErrInvalidInput)
	}
	if err := validate.Var(lon, "gte=-180,lte=180"); err != nil {
		return nil, fmt.Errorf("%w: longitude", ErrInvalidInput)
	}

	cell := geohash.EncodeWithPrecision(lat, lon, nearbyPrecision)
	cells := append([]string{cell}, geohash.Neighbors(cell)...)

	db := s.db.WithContext(ctx)
	var locs []models.BusLocation
	if err := db.Where("is_active = ?", true).
		Where("substr(geohash, 1, 5) IN ?", cells).
		Find(&locs).Error; err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return []NearbyBus{}, nil
	}

	routeIDs := make([]uint, 0, len(locs))
	for _, l := range locs {
		routeIDs = append(routeIDs, l.RouteID)
	}
	var routes []models.Route
	if err := db.Where("id IN ?", routeIDs).Find(&routes).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Route, len(routes))
	for _, r := range routes {
		byID[r.ID] = r
	}

	out := make([]NearbyBus, 0, len(locs))
	for _, l := range locs {
		route, ok := byID[l.RouteID]
		if !ok {
			continue
		}
		out = append(out, NearbyBus{
			RouteID:        l.RouteID,
			RouteName:      route.Name,
			BusNumber:      route.BusNumber,
			Latitude:       l.Latitude,
			Longitude:      l.Longitude,
			DistanceMeters: Distance(lat, lon, l.Latitude, l.Longitude),
			CurrentStopID:  l.CurrentStopID,
			UpdatedAt:      l.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Forget drops the mirrored location of a route, used when a route or
// tracker is removed.
func (s *Service) Forget(ctx context.Context, routeID uint) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Delete(ctx, routeID); err != nil {
		logrus.WithError(err).WithField("route_id", routeID).Warn("Failed to clear location mirror.")
	}
}
