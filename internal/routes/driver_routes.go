package routes

import (
	"github.com/gin-gonic/gin"

	"campus_bus/internal/controllers"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

func DriverRoutes(r *gin.Engine, ctl *controllers.Controller) {
	r.GET("/driver-tracker/", middleware.RequireRole(models.RoleDriver, middleware.PageDenied), ctl.DriverTracker)

	driver := r.Group("/api/driver")
	driver.Use(middleware.RequireRole(models.RoleDriver, middleware.APIDenied("Not a driver")))
	{
		driver.POST("/update-location/", ctl.UpdateBusLocation)
		driver.POST("/location-error/", ctl.ReportLocationError)
	}
}
