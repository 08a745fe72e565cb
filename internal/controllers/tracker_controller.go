package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_bus/internal/tracking"
)

func (ctl *Controller) ListTrackers(c *gin.Context) {
	activeOnly := false
	if v := parseBool(c.Query("is_active")); v != nil {
		activeOnly = *v
	}
	trackers, err := ctl.Tracking.Trackers(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trackers})
}

// TrackerAction activates or deactivates current-location rows.
func (ctl *Controller) TrackerAction(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var active bool
	switch req.Action {
	case "activate":
		active = true
	case "deactivate":
		active = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	n, err := ctl.Tracking.SetTrackersActive(c.Request.Context(), req.IDs, active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (ctl *Controller) ListLocationErrors(c *gin.Context) {
	routeID, err := parseOptionalID(c.Query("route_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	unresolved := parseBool(c.Query("unresolved"))
	errs, err := ctl.Tracking.LocationErrors(c.Request.Context(), tracking.ErrorFilter{
		RouteID:    routeID,
		Type:       c.Query("error_type"),
		Critical:   parseBool(c.Query("is_critical")),
		Unresolved: unresolved != nil && *unresolved,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": errs})
}

func (ctl *Controller) LocationErrorAction(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := ctl.Tracking.ApplyErrorAction(c.Request.Context(), req.Action, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
