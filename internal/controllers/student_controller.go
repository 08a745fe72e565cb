package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

func orderedStops(db *gorm.DB) *gorm.DB {
	return db.Order("stop_order asc")
}

func orderedSchedules(db *gorm.DB) *gorm.DB {
	return db.Order("day_of_week asc")
}

// currentStudent loads the logged-in account and its student profile, if any.
func (ctl *Controller) currentStudent(c *gin.Context) (*models.User, error) {
	var user models.User
	err := ctl.DB.WithContext(c.Request.Context()).
		Preload("Student").
		Preload("Student.ActiveRoute").
		First(&user, middleware.CurrentIdentity(c).UserID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// APIRoutes lists routes as a bare JSON array.
func (ctl *Controller) APIRoutes(c *gin.Context) {
	var routes []models.Route
	if err := ctl.DB.WithContext(c.Request.Context()).Order("name asc").Find(&routes).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(routes))
	for _, r := range routes {
		out = append(out, gin.H{
			"id":         r.ID,
			"name":       r.Name,
			"bus_number": r.BusNumber,
			"is_active":  r.IsActive,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *Controller) StudentHome(c *gin.Context) {
	user, err := ctl.currentStudent(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var routes []models.Route
	if err := ctl.DB.WithContext(c.Request.Context()).Where("is_active = ?", true).Order("name asc").Find(&routes).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":     "home",
		"user":     prepareUserResponse(*user),
		"routes":   routes,
		"messages": flashes(c),
	})
}

func (ctl *Controller) RoutesPage(c *gin.Context) {
	var routes []models.Route
	err := ctl.DB.WithContext(c.Request.Context()).
		Preload("Stops", orderedStops).
		Preload("Schedules", "is_active = ?", true).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&routes).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "routes", "routes": routes})
}

func (ctl *Controller) DriversPage(c *gin.Context) {
	var drivers []models.Driver
	err := ctl.DB.WithContext(c.Request.Context()).
		Preload("User").
		Preload("AssignedRoute").
		Where("is_active = ? AND is_verified = ?", true, true).
		Find(&drivers).Error
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(drivers))
	for _, d := range drivers {
		entry := gin.H{
			"id":    d.ID,
			"name":  d.User.Name,
			"phone": d.Phone,
			"route": nil,
		}
		if d.AssignedRoute != nil {
			entry["route"] = gin.H{"id": d.AssignedRoute.ID, "name": d.AssignedRoute.Name, "bus_number": d.AssignedRoute.BusNumber}
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"page": "drivers", "drivers": out})
}

func (ctl *Controller) StopsPage(c *gin.Context) {
	q := ctl.DB.WithContext(c.Request.Context()).Order("route_id asc").Order("stop_order asc")
	if raw := c.Query("route_id"); raw != "" {
		routeID, err := parseOptionalID(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		q = q.Where("route_id = ?", *routeID)
	}
	var stops []models.Stop
	if err := q.Find(&stops).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "stops", "stops": stops})
}

// FeesPage shows the logged-in student's own fee records.
func (ctl *Controller) FeesPage(c *gin.Context) {
	user, err := ctl.currentStudent(c)
	if err != nil {
		respondError(c, err)
		return
	}
	records := []gin.H{}
	if user.Student != nil {
		var fees []models.FeeRecord
		if err := ctl.DB.WithContext(c.Request.Context()).
			Where("student_id = ?", user.Student.ID).
			Order("due_date desc").
			Find(&fees).Error; err != nil {
			respondError(c, err)
			return
		}
		today := time.Now()
		for _, f := range fees {
			records = append(records, gin.H{
				"id":             f.ID,
				"amount":         f.Amount,
				"due_date":       f.DueDate.Format("2006-01-02"),
				"status":         f.Status,
				"paid_on":        f.PaidOn,
				"payment_method": f.PaymentMethod,
				"is_overdue":     f.IsOverdue(today),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"page": "fees", "fees": records})
}

func (ctl *Controller) LiveTrackerPage(c *gin.Context) {
	var routes []models.Route
	if err := ctl.DB.WithContext(c.Request.Context()).
		Preload("Location").
		Where("is_active = ?", true).
		Order("name asc").
		Find(&routes).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(routes))
	for _, r := range routes {
		entry := gin.H{"id": r.ID, "name": r.Name, "bus_number": r.BusNumber, "location": nil}
		if r.Location != nil {
			entry["location"] = gin.H{
				"latitude":   r.Location.Latitude,
				"longitude":  r.Location.Longitude,
				"is_active":  r.Location.IsActive,
				"updated_at": r.Location.UpdatedAt,
			}
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"page": "live-tracker", "routes": out})
}

// LiveTrackerDebug dumps trackers and recent GPS history for diagnosing a
// silent bus.
func (ctl *Controller) LiveTrackerDebug(c *gin.Context) {
	ctx := c.Request.Context()
	trackers, err := ctl.Tracking.Trackers(ctx, false)
	if err != nil {
		respondError(c, err)
		return
	}
	var logs []models.GPSLog
	if err := ctl.DB.WithContext(ctx).Order("created_at desc").Limit(50).Find(&logs).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":        "live-tracker-debug",
		"server_time": time.Now(),
		"trackers":    trackers,
		"recent_logs": logs,
	})
}
