package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/internal/services"
	"github.com/charlesng35/portcullis/pkg/response"
)

// ReportGenerator builds audit reports.
type ReportGenerator interface {
	Generate(ctx context.Context, req services.ReportRequest) (models.Report, error)
}

type ReportHandler struct {
	reports ReportGenerator
}

func NewReportHandler(reports ReportGenerator) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type reportRequest struct {
	From           time.Time `json:"from" validate:"required"`
	To             time.Time `json:"to" validate:"required"`
	UserID         string    `json:"userId,omitempty"`
	AccessPointID  string    `json:"accessPointId,omitempty"`
	IncludeDetails bool      `json:"includeDetails"`
}

// POST /api/reports
func (h *ReportHandler) Generate(c *gin.Context) {
	var req reportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	report, err := h.reports.Generate(requestContext(c), services.ReportRequest{
		From:           req.From,
		To:             req.To,
		UserID:         req.UserID,
		AccessPointID:  req.AccessPointID,
		IncludeDetails: req.IncludeDetails,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
