package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/archive"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/errors"
	"github.com/charlesng35/portcullis/pkg/response"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditReader reads the in-memory audit log, newest first.
type AuditReader interface {
	All() []models.AccessEvent
	ByUser(userID string) []models.AccessEvent
	ByAccessPoint(accessPointID string) []models.AccessEvent
	Get(id string) (models.AccessEvent, bool)
	Capacity() int
}

// ArchiveReader queries the durable audit archive.
type ArchiveReader interface {
	List(ctx context.Context, opts archive.ListOptions) ([]models.AccessEvent, int64, error)
	Export(ctx context.Context, filters archive.Filters) ([]models.AccessEvent, error)
}

type AuditHandler struct {
	log     AuditReader
	archive ArchiveReader
}

// NewAuditHandler builds the audit handler. archive may be nil when archiving is disabled.
func NewAuditHandler(log AuditReader, archive ArchiveReader) *AuditHandler {
	return &AuditHandler{log: log, archive: archive}
}

// GET /api/audit?user_id=&access_point_id=&limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	pointID := strings.TrimSpace(c.Query("access_point_id"))

	var events []models.AccessEvent
	switch {
	case userID != "":
		events = h.log.ByUser(userID)
		if pointID != "" {
			events = filterByAccessPoint(events, pointID)
		}
	case pointID != "":
		events = h.log.ByAccessPoint(pointID)
	default:
		events = h.log.All()
	}

	limit := clamp(parseIntQuery(c, "limit", defaultAuditLimit), 1, maxAuditLimit)
	offset := max(parseIntQuery(c, "offset", 0), 0)

	total := len(events)
	start := min(offset, total)
	end := min(start+limit, total)

	response.SuccessWithMeta(c, http.StatusOK, events[start:end], &response.Meta{
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Capacity: h.log.Capacity(),
	})
}

// GET /api/audit/:id
func (h *AuditHandler) Get(c *gin.Context) {
	event, ok := h.log.Get(c.Param("id"))
	if !ok {
		response.Error(c, errors.NewNotFound("audit event"))
		return
	}
	response.Success(c, http.StatusOK, event)
}

// GET /api/audit/archive?page=&per_page=&user_id=&...
func (h *AuditHandler) Archive(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, errors.ErrServiceUnavailable.WithMessage("Audit archive is not enabled"))
		return
	}

	filters, ok := archiveFilters(c)
	if !ok {
		return
	}
	page := max(parseIntQuery(c, "page", 1), 1)
	perPage := clamp(parseIntQuery(c, "per_page", 50), 1, 500)

	events, total, err := h.archive.List(requestContext(c), archive.ListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, events, &response.Meta{
		Total:  int(total),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
}

// GET /api/audit/archive/export
func (h *AuditHandler) Export(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, errors.ErrServiceUnavailable.WithMessage("Audit archive is not enabled"))
		return
	}

	filters, ok := archiveFilters(c)
	if !ok {
		return
	}

	events, err := h.archive.Export(requestContext(c), filters)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, events, &response.Meta{Total: len(events)})
}

func archiveFilters(c *gin.Context) (archive.Filters, bool) {
	filters := archive.Filters{
		UserID:        strings.TrimSpace(c.Query("user_id")),
		AccessPointID: strings.TrimSpace(c.Query("access_point_id")),
		Method:        strings.TrimSpace(c.Query("method")),
		Action:        strings.TrimSpace(c.Query("action")),
		Result:        strings.TrimSpace(c.Query("result")),
		Severity:      strings.TrimSpace(c.Query("severity")),
		AnomalyOnly:   c.Query("anomaly") == "true",
	}

	var ok bool
	if filters.Since, ok = parseTimeQuery(c, "since"); !ok {
		return filters, false
	}
	if filters.Until, ok = parseTimeQuery(c, "until"); !ok {
		return filters, false
	}
	return filters, true
}

func filterByAccessPoint(events []models.AccessEvent, accessPointID string) []models.AccessEvent {
	out := events[:0:0]
	for _, event := range events {
		if event.AccessPointID == accessPointID {
			out = append(out, event)
		}
	}
	return out
}

func clamp(value, lo, hi int) int {
	return min(max(value, lo), hi)
}
