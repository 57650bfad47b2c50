package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/handlers"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	audit := api.Group("/audit")
	{
		audit.GET("", handler.List)
		audit.GET("/archive", handler.Archive)
		audit.GET("/archive/export", handler.Export)
		audit.GET("/:id", handler.Get)
	}
}
