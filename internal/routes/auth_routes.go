package routes

import (
	"github.com/gin-gonic/gin"

	"campus_bus/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	r.GET("/", ctl.LoginPage)
	r.POST("/", ctl.Login)
	r.GET("/logout/", ctl.Logout)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login/", ctl.APILogin)
	}
}
