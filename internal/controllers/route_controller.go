package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

var (
	errRouteNameTaken = errors.New("route name or bus number already in use")
	errStopOrderTaken = errors.New("stop order already used on this route")
	errBadClock       = errors.New("time must be HH:MM or HH:MM:SS")
)

// RouteResponse is a route with its directory counts.
type RouteResponse struct {
	models.Route
	StopCount         int64 `json:"stop_count"`
	ActiveDriverCount int64 `json:"active_driver_count"`
	StudentCount      int64 `json:"student_count"`
}

type routeCounts struct {
	RouteID uint
	N       int64
}

func countBy(db *gorm.DB, model interface{}, column string, where string, args ...interface{}) (map[uint]int64, error) {
	var rows []routeCounts
	q := db.Model(model).Select(column + " AS route_id, COUNT(*) AS n").Where(column + " IS NOT NULL")
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.RouteID] = r.N
	}
	return out, nil
}

func (ctl *Controller) toRouteResponses(ctx context.Context, routes []models.Route) ([]RouteResponse, error) {
	db := ctl.DB.WithContext(ctx)
	stops, err := countBy(db, &models.Stop{}, "route_id", "")
	if err != nil {
		return nil, err
	}
	drivers, err := countBy(db, &models.Driver{}, "assigned_route_id", "is_active = ?", true)
	if err != nil {
		return nil, err
	}
	students, err := countBy(db, &models.Student{}, "active_route_id", "")
	if err != nil {
		return nil, err
	}

	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteResponse{
			Route:             r,
			StopCount:         stops[r.ID],
			ActiveDriverCount: drivers[r.ID],
			StudentCount:      students[r.ID],
		})
	}
	return out, nil
}

// validClock accepts HH:MM or HH:MM:SS; empty is allowed.
func validClock(s string) bool {
	if s == "" {
		return true
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func normaliseBusNumber(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	return &v
}

type stopInput struct {
	Name        string   `json:"name" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	ArrivalTime string   `json:"arrival_time"`
	Order       int      `json:"order" binding:"required,gt=0"`
}

func (in stopInput) model(routeID uint) models.Stop {
	return models.Stop{
		RouteID:     routeID,
		Name:        in.Name,
		Latitude:    *in.Latitude,
		Longitude:   *in.Longitude,
		ArrivalTime: in.ArrivalTime,
		Order:       in.Order,
	}
}

type createRouteInput struct {
	Name          string      `json:"name" binding:"required"`
	BusNumber     *string     `json:"bus_number"`
	StartLocation string      `json:"start_location"`
	EndLocation   string      `json:"end_location"`
	IsActive      *bool       `json:"is_active"`
	Stops         []stopInput `json:"stops" binding:"dive"`
}

// CreateRoute stores a route and, optionally, its stops in one transaction.
func (ctl *Controller) CreateRoute(c *gin.Context) {
	var input createRouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	seen := map[int]bool{}
	for _, s := range input.Stops {
		if seen[s.Order] {
			c.JSON(http.StatusConflict, gin.H{"error": errStopOrderTaken.Error()})
			return
		}
		seen[s.Order] = true
		if !validClock(s.ArrivalTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadClock.Error()})
			return
		}
	}

	route := models.Route{
		Name:          strings.TrimSpace(input.Name),
		BusNumber:     normaliseBusNumber(input.BusNumber),
		StartLocation: input.StartLocation,
		EndLocation:   input.EndLocation,
		IsActive:      input.IsActive == nil || *input.IsActive,
	}

	ctx := c.Request.Context()
	err := ctl.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRouteUnique(tx, 0, route.Name, route.BusNumber); err != nil {
			return err
		}
		if err := tx.Create(&route).Error; err != nil {
			return err
		}
		for _, s := range input.Stops {
			stop := s.model(route.ID)
			if err := tx.Create(&stop).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		ctl.routeError(c, err)
		return
	}

	ctl.respondRoute(c, http.StatusCreated, route.ID)
}

func ensureRouteUnique(tx *gorm.DB, selfID uint, name string, busNumber *string) error {
	q := tx.Model(&models.Route{}).Where("id <> ?", selfID)
	if busNumber != nil {
		q = q.Where("name = ? OR bus_number = ?", name, *busNumber)
	} else {
		q = q.Where("name = ?", name)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errRouteNameTaken
	}
	return nil
}

func (ctl *Controller) routeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errRouteNameTaken), errors.Is(err, errStopOrderTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errBadClock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		respondError(c, err)
	}
}

func (ctl *Controller) respondRoute(c *gin.Context, status int, id uint) {
	var route models.Route
	err := ctl.DB.WithContext(c.Request.Context()).
		Preload("Stops", orderedStops).
		Preload("Schedules", orderedSchedules).
		First(&route, id).Error
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := ctl.toRouteResponses(c.Request.Context(), []models.Route{route})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"route": resp[0]})
}

// ListRoutes returns every route with stop, driver and student counts.
func (ctl *Controller) ListRoutes(c *gin.Context) {
	q := ctl.DB.WithContext(c.Request.Context()).Order("name asc")
	if v := parseBool(c.Query("is_active")); v != nil {
		q = q.Where("is_active = ?", *v)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR bus_number LIKE ? OR start_location LIKE ? OR end_location LIKE ?", like, like, like, like)
	}
	var routes []models.Route
	if err := q.Find(&routes).Error; err != nil {
		respondError(c, err)
		return
	}
	resp, err := ctl.toRouteResponses(c.Request.Context(), routes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (ctl *Controller) GetRoute(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.respondRoute(c, http.StatusOK, id)
}

type updateRouteInput struct {
	Name          *string `json:"name"`
	BusNumber     *string `json:"bus_number"`
	StartLocation *string `json:"start_location"`
	EndLocation   *string `json:"end_location"`
	IsActive      *bool   `json:"is_active"`
}

func (ctl *Controller) UpdateRoute(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input updateRouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var route models.Route
		if err := tx.First(&route, id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if input.Name != nil {
			route.Name = strings.TrimSpace(*input.Name)
			updates["name"] = route.Name
		}
		if input.BusNumber != nil {
			route.BusNumber = normaliseBusNumber(input.BusNumber)
			updates["bus_number"] = route.BusNumber
		}
		if input.StartLocation != nil {
			updates["start_location"] = *input.StartLocation
		}
		if input.EndLocation != nil {
			updates["end_location"] = *input.EndLocation
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		if err := ensureRouteUnique(tx, route.ID, route.Name, route.BusNumber); err != nil {
			return err
		}
		return tx.Model(&route).Updates(updates).Error
	})
	if err != nil {
		ctl.routeError(c, err)
		return
	}
	ctl.respondRoute(c, http.StatusOK, id)
}

// DeleteRoute removes a route with its stops, schedules and tracker, and
// unassigns its drivers and students.
func (ctl *Controller) DeleteRoute(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	err = ctl.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var route models.Route
		if err := tx.First(&route, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Driver{}).Where("assigned_route_id = ?", id).Update("assigned_route_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Student{}).Where("active_route_id = ?", id).Update("active_route_id", nil).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.BusLocation{}, &models.Stop{}, &models.RouteSchedule{}} {
			if err := tx.Unscoped().Where("route_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&route).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.Tracking.Forget(ctx, id)
	logrus.WithField("route_id", id).Info("Route deleted.")
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully."})
}

func (ctl *Controller) ListStops(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var stops []models.Stop
	if err := ctl.DB.WithContext(c.Request.Context()).Where("route_id = ?", routeID).Order("stop_order asc").Find(&stops).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stops})
}

func stopOrderFree(tx *gorm.DB, routeID uint, order int, selfID uint) error {
	var n int64
	if err := tx.Model(&models.Stop{}).
		Where("route_id = ? AND stop_order = ? AND id <> ?", routeID, order, selfID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errStopOrderTaken
	}
	return nil
}

func (ctl *Controller) CreateStop(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input stopInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validClock(input.ArrivalTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadClock.Error()})
		return
	}

	stop := input.model(routeID)
	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Route{}, routeID).Error; err != nil {
			return err
		}
		if err := stopOrderFree(tx, routeID, stop.Order, 0); err != nil {
			return err
		}
		return tx.Create(&stop).Error
	})
	if err != nil {
		ctl.routeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stop": stop})
}

type updateStopInput struct {
	Name        *string  `json:"name"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	ArrivalTime *string  `json:"arrival_time"`
	Order       *int     `json:"order" binding:"omitempty,gt=0"`
}

// UpdateStop edits a stop of the route in the path. A stop that belongs to
// another route is not found.
func (ctl *Controller) UpdateStop(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := parseID(c, "stop_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input updateStopInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.ArrivalTime != nil && !validClock(*input.ArrivalTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadClock.Error()})
		return
	}

	var stop models.Stop
	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", routeID).First(&stop, id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Latitude != nil {
			updates["latitude"] = *input.Latitude
		}
		if input.Longitude != nil {
			updates["longitude"] = *input.Longitude
		}
		if input.ArrivalTime != nil {
			updates["arrival_time"] = *input.ArrivalTime
		}
		if input.Order != nil {
			if err := stopOrderFree(tx, stop.RouteID, *input.Order, stop.ID); err != nil {
				return err
			}
			updates["stop_order"] = *input.Order
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&stop).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&stop, id).Error
	})
	if err != nil {
		ctl.routeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop": stop})
}

func (ctl *Controller) DeleteStop(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := parseID(c, "stop_id")
	if err != nil {
		respondError(c, err)
		return
	}
	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var stop models.Stop
		if err := tx.Where("route_id = ?", routeID).First(&stop, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BusLocation{}).Where("current_stop_id = ?", id).Update("current_stop_id", nil).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&stop).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stop deleted successfully."})
}

func (ctl *Controller) ListSchedules(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var schedules []models.RouteSchedule
	if err := ctl.DB.WithContext(c.Request.Context()).Where("route_id = ?", routeID).Order("day_of_week asc").Find(&schedules).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, gin.H{
			"id":             s.ID,
			"day_of_week":    s.DayOfWeek,
			"day":            s.DayName(),
			"departure_time": s.DepartureTime,
			"arrival_time":   s.ArrivalTime,
			"is_active":      s.IsActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

type scheduleInput struct {
	DayOfWeek     *int   `json:"day_of_week" binding:"required,gte=0,lte=6"`
	DepartureTime string `json:"departure_time" binding:"required"`
	ArrivalTime   string `json:"arrival_time" binding:"required"`
	IsActive      *bool  `json:"is_active"`
}

// UpsertSchedule sets the timing of a route for one weekday.
func (ctl *Controller) UpsertSchedule(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input scheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validClock(input.DepartureTime) || !validClock(input.ArrivalTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadClock.Error()})
		return
	}

	var schedule models.RouteSchedule
	status := http.StatusOK
	err = ctl.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Route{}, routeID).Error; err != nil {
			return err
		}
		err := tx.Where("route_id = ? AND day_of_week = ?", routeID, *input.DayOfWeek).First(&schedule).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusCreated
			schedule = models.RouteSchedule{RouteID: routeID, DayOfWeek: *input.DayOfWeek}
		} else if err != nil {
			return err
		}
		schedule.DepartureTime = input.DepartureTime
		schedule.ArrivalTime = input.ArrivalTime
		schedule.IsActive = input.IsActive == nil || *input.IsActive
		return tx.Save(&schedule).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"schedule": schedule})
}

func (ctl *Controller) DeleteSchedule(c *gin.Context) {
	routeID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := parseID(c, "schedule_id")
	if err != nil {
		respondError(c, err)
		return
	}
	res := ctl.DB.WithContext(c.Request.Context()).Unscoped().
		Where("route_id = ?", routeID).
		Delete(&models.RouteSchedule{}, id)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted successfully."})
}
