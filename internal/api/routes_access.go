package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/handlers"
)

func registerAccessRoutes(api *gin.RouterGroup, handler *handlers.AccessHandler) {
	api.POST("/access/attempt", handler.Attempt)
}

func registerAccessPointRoutes(api *gin.RouterGroup, handler *handlers.AccessPointHandler) {
	points := api.Group("/access-points")
	{
		points.GET("", handler.List)
		points.POST("", handler.Create)
		points.GET("/:id", handler.Get)
		points.PATCH("/:id", handler.Update)
		points.DELETE("/:id", handler.Delete)
	}
}

func registerPassRoutes(api *gin.RouterGroup, handler *handlers.PassHandler) {
	api.POST("/passes", handler.Issue)
}
