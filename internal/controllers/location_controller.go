package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"campus_bus/internal/middleware"
	"campus_bus/internal/tracking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the feed is public, same as the pull endpoint
	},
}

// UpdateBusLocation is the driver push endpoint.
func (ctl *Controller) UpdateBusLocation(c *gin.Context) {
	ctx := c.Request.Context()
	id := middleware.CurrentIdentity(c)

	driver, err := ctl.Tracking.DriverFor(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotDriver) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a driver"})
			return
		}
		respondError(c, err)
		return
	}

	in, err := tracking.ParsePushForm(c.GetPostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	_, err = ctl.Tracking.Push(ctx, driver, in)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "Location updated"})
	case errors.Is(err, tracking.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
	case errors.Is(err, tracking.ErrDriverInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "Driver is not active or not verified"})
	case errors.Is(err, tracking.ErrNoRoute):
		c.JSON(http.StatusForbidden, gin.H{"error": "No route assigned"})
	default:
		respondError(c, err)
	}
}

// GetBusLocation is the public pull endpoint.
func (ctl *Controller) GetBusLocation(c *gin.Context) {
	routeID, err := parseID(c, "route_id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	snap, err := ctl.Tracking.Pull(c.Request.Context(), routeID)
	if errors.Is(err, tracking.ErrNotStarted) {
		c.JSON(http.StatusOK, gin.H{"error": "Bus not started yet"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"latitude":   snap.Latitude,
		"longitude":  snap.Longitude,
		"updated_at": snap.UpdatedAt,
	})
}

func (ctl *Controller) NearbyBuses(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	buses, err := ctl.Tracking.Nearby(c.Request.Context(), lat, lon, limit)
	if errors.Is(err, tracking.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buses)
}

func (ctl *Controller) RouteShape(c *gin.Context) {
	routeID, err := parseID(c, "route_id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	feature, err := ctl.Tracking.Shape(c.Request.Context(), routeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feature)
}

type locationErrorInput struct {
	ErrorType    string `form:"error_type" json:"error_type"`
	ErrorMessage string `form:"error_message" json:"error_message"`
	IsCritical   string `form:"is_critical" json:"is_critical"`
}

// ReportLocationError lets a driver flag GPS trouble on its route.
func (ctl *Controller) ReportLocationError(c *gin.Context) {
	ctx := c.Request.Context()
	driver, err := ctl.Tracking.DriverFor(ctx, middleware.CurrentIdentity(c).UserID)
	if errors.Is(err, tracking.ErrNotDriver) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a driver"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	var in locationErrorInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}
	critical := parseBool(in.IsCritical)

	rec, err := ctl.Tracking.ReportError(ctx, driver, tracking.ErrorReport{
		Type:       in.ErrorType,
		Message:    in.ErrorMessage,
		IsCritical: critical != nil && *critical,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, rec)
	case errors.Is(err, tracking.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
	case errors.Is(err, tracking.ErrNoRoute):
		c.JSON(http.StatusForbidden, gin.H{"error": "No route assigned"})
	default:
		respondError(c, err)
	}
}

// LiveFeed upgrades to a WebSocket that streams a route's location
// snapshots, starting with the current one if the bus has started.
func (ctl *Controller) LiveFeed(c *gin.Context) {
	routeID, err := parseID(c, "route_id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	hub := ctl.Tracking.Hub()
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed disabled"})
		return
	}

	initial, err := ctl.Tracking.Pull(c.Request.Context(), routeID)
	if err != nil && !errors.Is(err, tracking.ErrNotStarted) {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	hub.Serve(routeID, conn, initial)
}
