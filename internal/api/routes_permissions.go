package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/handlers"
)

func registerPermissionRoutes(api *gin.RouterGroup, handler *handlers.PermissionHandler) {
	perms := api.Group("/permissions")
	{
		perms.GET("", handler.List)
		perms.POST("", handler.Grant)
		perms.GET("/:id", handler.Get)
		perms.PATCH("/:id", handler.Update)
		perms.POST("/:id/revoke", handler.Revoke)
	}
}
