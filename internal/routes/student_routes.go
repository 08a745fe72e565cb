package routes

import (
	"github.com/gin-gonic/gin"

	"campus_bus/internal/controllers"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

func StudentRoutes(r *gin.Engine, ctl *controllers.Controller) {
	pages := r.Group("/")
	pages.Use(middleware.RequireRole(models.RoleStudent, middleware.PageDenied))
	{
		pages.GET("/home/", ctl.StudentHome)
		pages.GET("/routes/", ctl.RoutesPage)
		pages.GET("/drivers/", ctl.DriversPage)
		pages.GET("/stops/", ctl.StopsPage)
		pages.GET("/fees/", ctl.FeesPage)
		pages.GET("/live-tracker/", ctl.LiveTrackerPage)
		pages.GET("/live-tracker/debug/", ctl.LiveTrackerDebug)
	}

	// public reads
	api := r.Group("/api/student")
	{
		api.GET("/routes/", ctl.APIRoutes)
		api.GET("/routes/:route_id/shape/", ctl.RouteShape)
		api.GET("/bus-location/:route_id/", ctl.GetBusLocation)
		api.GET("/buses/nearby/", ctl.NearbyBuses)
	}
}
