package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/errors"
	"github.com/charlesng35/portcullis/pkg/response"
)

// AccessPointStore is the registry surface used by the HTTP layer.
type AccessPointStore interface {
	Get(id string) (models.AccessPoint, bool)
	List() []models.AccessPoint
	Create(ctx context.Context, point models.AccessPoint) models.AccessPoint
	Update(ctx context.Context, id string, patch models.AccessPointPatch) (models.AccessPoint, bool)
	Delete(ctx context.Context, id string) bool
}

type AccessPointHandler struct {
	points AccessPointStore
}

func NewAccessPointHandler(points AccessPointStore) *AccessPointHandler {
	return &AccessPointHandler{points: points}
}

type createAccessPointRequest struct {
	ID       string                     `json:"id,omitempty" validate:"omitempty,max=128"`
	Name     string                     `json:"name" validate:"required,max=128"`
	Type     models.AccessPointType     `json:"type" validate:"required,oneof=door gate elevator turnstile parking room building"`
	Location string                     `json:"location,omitempty"`
	Zone     string                     `json:"zone,omitempty"`
	Enabled  *bool                      `json:"enabled,omitempty"`
	Status   models.AccessPointStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive maintenance offline"`
	Hardware models.HardwareInfo        `json:"hardware"`
	Settings models.AccessPointSettings `json:"settings"`
}

// GET /api/access-points?zone=&type=
func (h *AccessPointHandler) List(c *gin.Context) {
	zone := strings.TrimSpace(c.Query("zone"))
	kind := strings.TrimSpace(c.Query("type"))

	points := h.points.List()
	filtered := make([]models.AccessPoint, 0, len(points))
	for _, point := range points {
		if zone != "" && point.Zone != zone {
			continue
		}
		if kind != "" && string(point.Type) != kind {
			continue
		}
		filtered = append(filtered, point)
	}

	response.SuccessWithMeta(c, http.StatusOK, filtered, &response.Meta{Total: len(filtered)})
}

// GET /api/access-points/:id
func (h *AccessPointHandler) Get(c *gin.Context) {
	point, ok := h.points.Get(c.Param("id"))
	if !ok {
		response.Error(c, errors.ErrAccessPointNotFound)
		return
	}
	response.Success(c, http.StatusOK, point)
}

// POST /api/access-points
func (h *AccessPointHandler) Create(c *gin.Context) {
	var req createAccessPointRequest
	if !bindAndValidate(c, &req) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	point := h.points.Create(requestContext(c), models.AccessPoint{
		ID:       req.ID,
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Location: req.Location,
		Zone:     req.Zone,
		Enabled:  enabled,
		Status:   req.Status,
		Hardware: req.Hardware,
		Settings: req.Settings,
	})
	response.Success(c, http.StatusCreated, point)
}

// PATCH /api/access-points/:id
func (h *AccessPointHandler) Update(c *gin.Context) {
	var patch models.AccessPointPatch
	if !bindAndValidate(c, &patch) {
		return
	}

	point, ok := h.points.Update(requestContext(c), c.Param("id"), patch)
	if !ok {
		response.Error(c, errors.ErrAccessPointNotFound)
		return
	}
	response.Success(c, http.StatusOK, point)
}

// DELETE /api/access-points/:id
func (h *AccessPointHandler) Delete(c *gin.Context) {
	if !h.points.Delete(requestContext(c), c.Param("id")) {
		response.Error(c, errors.ErrAccessPointNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
