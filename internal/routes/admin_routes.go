package routes

import (
	"github.com/gin-gonic/gin"

	"campus_bus/internal/controllers"
	"campus_bus/internal/middleware"
	"campus_bus/internal/models"
)

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller) {
	pages := r.Group("/admin-panel")
	pages.Use(middleware.RequireRole(models.RoleAdmin, middleware.PageDenied))
	{
		pages.GET("/", ctl.AdminDashboard)
		pages.GET("/manage-students/", ctl.ManageStudentsPage)
		pages.POST("/manage-students/", ctl.ManageStudents)
		pages.GET("/manage-drivers/", ctl.ManageDriversPage)
		pages.GET("/manage-routes/", ctl.ManageRoutesPage)
		pages.GET("/manage-fees/", ctl.ManageFeesPage)
	}

	api := r.Group("/admin-panel/api")
	api.Use(middleware.RequireRole(models.RoleAdmin, middleware.APIDenied("")))
	{
		api.GET("/students/", ctl.ListStudents)
		api.POST("/students/actions/", ctl.StudentAction)
		api.GET("/students/:id/", ctl.GetStudent)
		api.PUT("/students/:id/", ctl.UpdateStudent)
		api.DELETE("/students/:id/", ctl.DeleteStudent)

		api.GET("/drivers/", ctl.ListDrivers)
		api.POST("/drivers/", ctl.CreateDriver)
		api.POST("/drivers/actions/", ctl.DriverAction)
		api.GET("/drivers/:id/", ctl.GetDriver)
		api.PUT("/drivers/:id/", ctl.UpdateDriver)
		api.DELETE("/drivers/:id/", ctl.DeleteDriver)

		api.GET("/routes/", ctl.ListRoutes)
		api.POST("/routes/", ctl.CreateRoute)
		api.GET("/routes/:id/", ctl.GetRoute)
		api.PUT("/routes/:id/", ctl.UpdateRoute)
		api.DELETE("/routes/:id/", ctl.DeleteRoute)
		api.GET("/routes/:id/stops/", ctl.ListStops)
		api.POST("/routes/:id/stops/", ctl.CreateStop)
		api.GET("/routes/:id/schedules/", ctl.ListSchedules)
		api.PUT("/routes/:id/stops/:stop_id/", ctl.UpdateStop)
		api.DELETE("/routes/:id/stops/:stop_id/", ctl.DeleteStop)
		api.PUT("/routes/:id/schedules/", ctl.UpsertSchedule)
		api.DELETE("/routes/:id/schedules/:schedule_id/", ctl.DeleteSchedule)

		api.GET("/fees/", ctl.ListFees)
		api.POST("/fees/", ctl.CreateFee)
		api.POST("/fees/actions/", ctl.FeeAction)
		api.GET("/fees/:id/", ctl.GetFee)
		api.POST("/fees/:id/mark-paid/", ctl.MarkFeePaid)
		api.POST("/fees/:id/payments/", ctl.RecordFeePayment)

		api.GET("/trackers/", ctl.ListTrackers)
		api.POST("/trackers/actions/", ctl.TrackerAction)
		api.GET("/location-errors/", ctl.ListLocationErrors)
		api.POST("/location-errors/actions/", ctl.LocationErrorAction)
	}
}
