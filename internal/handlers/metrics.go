package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/response"
)

// MetricsReader exposes the latest metrics snapshot and forces a recomputation.
type MetricsReader interface {
	Snapshot() models.Metrics
	Refresh() models.Metrics
}

type MetricsHandler struct {
	metrics MetricsReader
}

func NewMetricsHandler(metrics MetricsReader) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// GET /api/metrics/summary?refresh=true
func (h *MetricsHandler) Summary(c *gin.Context) {
	if c.Query("refresh") == "true" {
		response.Success(c, http.StatusOK, h.metrics.Refresh())
		return
	}
	response.Success(c, http.StatusOK, h.metrics.Snapshot())
}
