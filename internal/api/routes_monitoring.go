package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/handlers"
)

func registerMonitoringRoutes(api *gin.RouterGroup, metrics *handlers.MetricsHandler, reports *handlers.ReportHandler) {
	api.GET("/metrics/summary", metrics.Summary)
	api.POST("/reports", reports.Generate)
}
