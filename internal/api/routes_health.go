package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/app"
	"github.com/charlesng35/portcullis/internal/handlers"
	"github.com/charlesng35/portcullis/internal/monitoring"
)

const defaultMetricsEndpoint = "/metrics"

func registerHealthRoutes(r *gin.Engine, mon *monitoring.Module, prom app.PrometheusConfig) {
	var manager *monitoring.HealthManager
	if mon != nil {
		manager = mon.Health()
	}
	r.GET("/health", handlers.Health(manager))

	if mon == nil || !prom.Enabled {
		return
	}
	endpoint := strings.TrimSpace(prom.Endpoint)
	if endpoint == "" {
		endpoint = defaultMetricsEndpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}
