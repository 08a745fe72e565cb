package routes

import (
	"github.com/gin-gonic/gin"

	"campus_bus/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	ws := r.Group("/ws")
	{
		ws.GET("/routes/:route_id/", ctl.LiveFeed)
	}
}
