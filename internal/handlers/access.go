package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/middleware"
	"github.com/charlesng35/portcullis/internal/services"
	"github.com/charlesng35/portcullis/pkg/response"
)

// AccessAttempter decides access attempts.
type AccessAttempter interface {
	AttemptAccess(ctx context.Context, req services.AccessRequest) services.Decision
}

// AccessHandler serves the device-facing attempt endpoint.
type AccessHandler struct {
	svc AccessAttempter
}

func NewAccessHandler(svc AccessAttempter) *AccessHandler {
	return &AccessHandler{svc: svc}
}

type attemptRequest struct {
	UserID        string         `json:"userId" validate:"required,max=128"`
	AccessPointID string         `json:"accessPointId" validate:"required,max=128"`
	Method        string         `json:"method" validate:"required,max=64"`
	Credentials   map[string]any `json:"credentials"`
}

// POST /api/access/attempt
//
// Denials are decisions, not errors: the envelope is successful and data.success carries
// the outcome.
func (h *AccessHandler) Attempt(c *gin.Context) {
	var req attemptRequest
	if !bindAndValidate(c, &req) {
		return
	}

	decision := h.svc.AttemptAccess(requestContext(c), services.AccessRequest{
		UserID:        req.UserID,
		AccessPointID: req.AccessPointID,
		Method:        req.Method,
		Credentials:   req.Credentials,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		SessionID:     c.GetString(middleware.CtxRequestIDKey),
	})

	response.Success(c, http.StatusOK, decision)
}
