package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/errors"
	"github.com/charlesng35/portcullis/pkg/response"
)

// PermissionStore is the permission surface used by the HTTP layer.
type PermissionStore interface {
	Get(id string) (models.Permission, bool)
	List() []models.Permission
	ListByUser(userID string) []models.Permission
	ListByAccessPoint(accessPointID string) []models.Permission
	Grant(ctx context.Context, perm models.Permission) models.Permission
	Update(ctx context.Context, id string, patch models.PermissionPatch) (models.Permission, bool)
	Revoke(ctx context.Context, id, revokedBy string) bool
}

// AccessPointLookup resolves access points by id.
type AccessPointLookup interface {
	Get(id string) (models.AccessPoint, bool)
}

type PermissionHandler struct {
	permissions PermissionStore
	points      AccessPointLookup
}

func NewPermissionHandler(perms PermissionStore, points AccessPointLookup) *PermissionHandler {
	return &PermissionHandler{permissions: perms, points: points}
}

type grantPermissionRequest struct {
	UserID        string          `json:"userId" validate:"required,max=128"`
	UserName      string          `json:"userName,omitempty" validate:"max=128"`
	AccessPointID string          `json:"accessPointId" validate:"required"`
	AccessMethods []string        `json:"accessMethods" validate:"required,min=1,dive,oneof=qr_code rfid fingerprint face_recognition pin otp"`
	Schedule      models.Schedule `json:"schedule"`
	ValidFrom     *time.Time      `json:"validFrom,omitempty"`
	ValidTo       *time.Time      `json:"validTo,omitempty"`
	GrantedBy     string          `json:"grantedBy,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

type revokePermissionRequest struct {
	RevokedBy string `json:"revokedBy,omitempty"`
}

// GET /api/permissions?user_id=&access_point_id=&active=
func (h *PermissionHandler) List(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	pointID := strings.TrimSpace(c.Query("access_point_id"))

	var perms []models.Permission
	switch {
	case userID != "":
		perms = h.permissions.ListByUser(userID)
	case pointID != "":
		perms = h.permissions.ListByAccessPoint(pointID)
	default:
		perms = h.permissions.List()
	}

	activeOnly := c.Query("active") == "true"
	filtered := make([]models.Permission, 0, len(perms))
	for _, perm := range perms {
		if pointID != "" && perm.AccessPointID != pointID {
			continue
		}
		if activeOnly && !perm.Active {
			continue
		}
		filtered = append(filtered, perm)
	}

	response.SuccessWithMeta(c, http.StatusOK, filtered, &response.Meta{Total: len(filtered)})
}

// GET /api/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, ok := h.permissions.Get(c.Param("id"))
	if !ok {
		response.Error(c, errors.ErrPermissionNotFound)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// POST /api/permissions
func (h *PermissionHandler) Grant(c *gin.Context) {
	var req grantPermissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if _, ok := h.points.Get(req.AccessPointID); !ok {
		response.Error(c, errors.ErrAccessPointNotFound)
		return
	}
	if req.ValidFrom != nil && req.ValidTo != nil && !req.ValidTo.After(*req.ValidFrom) {
		response.Error(c, errors.NewBadRequest("validTo must be after validFrom"))
		return
	}

	perm := models.Permission{
		UserID:        req.UserID,
		UserName:      req.UserName,
		AccessPointID: req.AccessPointID,
		AccessMethods: req.AccessMethods,
		Schedule:      req.Schedule,
		ValidTo:       req.ValidTo,
		GrantedBy:     req.GrantedBy,
		Reason:        req.Reason,
		Metadata:      req.Metadata,
	}
	if req.ValidFrom != nil {
		perm.ValidFrom = *req.ValidFrom
	}

	response.Success(c, http.StatusCreated, h.permissions.Grant(requestContext(c), perm))
}

// PATCH /api/permissions/:id
func (h *PermissionHandler) Update(c *gin.Context) {
	var patch models.PermissionPatch
	if !bindAndValidate(c, &patch) {
		return
	}

	perm, ok := h.permissions.Update(requestContext(c), c.Param("id"), patch)
	if !ok {
		response.Error(c, errors.ErrPermissionNotFound)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// POST /api/permissions/:id/revoke
//
// Revoking an already revoked permission is a conflict, not a silent success.
func (h *PermissionHandler) Revoke(c *gin.Context) {
	var req revokePermissionRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	id := c.Param("id")
	if _, ok := h.permissions.Get(id); !ok {
		response.Error(c, errors.ErrPermissionNotFound)
		return
	}
	if !h.permissions.Revoke(requestContext(c), id, strings.TrimSpace(req.RevokedBy)) {
		response.Error(c, errors.ErrConflict.WithMessage("Permission already revoked"))
		return
	}

	perm, _ := h.permissions.Get(id)
	response.Success(c, http.StatusOK, perm)
}
