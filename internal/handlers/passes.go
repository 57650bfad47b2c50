package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/passes"
	"github.com/charlesng35/portcullis/pkg/errors"
	"github.com/charlesng35/portcullis/pkg/response"
)

// PassIssuer issues QR passes for a user at an access point.
type PassIssuer interface {
	Issue(ctx context.Context, userID, accessPointID string) (passes.Pass, error)
}

type PassHandler struct {
	passes PassIssuer
}

// NewPassHandler builds the pass handler. svc may be nil when passes are disabled.
func NewPassHandler(svc PassIssuer) *PassHandler {
	return &PassHandler{passes: svc}
}

type issuePassRequest struct {
	UserID        string `json:"userId" validate:"required"`
	AccessPointID string `json:"accessPointId" validate:"required"`
}

type passResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	QRCode    string    `json:"qrCode"`
}

// POST /api/passes
//
// Responds with the PNG itself when the client accepts image/png (or ?format=png), and with
// JSON carrying the token and a base64 PNG otherwise.
func (h *PassHandler) Issue(c *gin.Context) {
	if h.passes == nil {
		response.Error(c, errors.ErrServiceUnavailable.WithMessage("Access passes are not enabled"))
		return
	}

	var req issuePassRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pass, err := h.passes.Issue(requestContext(c), req.UserID, req.AccessPointID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "png" || strings.Contains(c.GetHeader("Accept"), "image/png") {
		c.Header("X-Pass-Expires-At", pass.ExpiresAt.UTC().Format(time.RFC3339))
		c.Data(http.StatusCreated, "image/png", pass.PNG)
		return
	}

	response.Success(c, http.StatusCreated, passResponse{
		Token:     pass.Token,
		ExpiresAt: pass.ExpiresAt,
		QRCode:    base64.StdEncoding.EncodeToString(pass.PNG),
	})
}
