package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/portcullis/internal/models"
	apperrors "github.com/charlesng35/portcullis/pkg/errors"
)

// ReportRequest selects the events a report covers. From and To are inclusive.
type ReportRequest struct {
	From           time.Time
	To             time.Time
	UserID         string
	AccessPointID  string
	IncludeDetails bool
}

// ReportOption customises a ReportService.
type ReportOption func(*ReportService)

// WithReportClock injects a custom clock, primarily for testing.
func WithReportClock(clock func() time.Time) ReportOption {
	return func(s *ReportService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ReportService builds audit reports from the in-memory log.
type ReportService struct {
	events EventLister
	now    func() time.Time
}

// NewReportService constructs a report generator over events.
func NewReportService(evts EventLister, opts ...ReportOption) (*ReportService, error) {
	if evts == nil {
		return nil, errors.New("report service: audit log is required")
	}
	svc := &ReportService{events: evts, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Generate summarises retained events within the request window, newest first.
func (s *ReportService) Generate(ctx context.Context, req ReportRequest) (models.Report, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return models.Report{}, fmt.Errorf("report service: generate: %w", err)
	}

	if req.From.IsZero() || req.To.IsZero() {
		return models.Report{}, apperrors.NewBadRequest("report period requires both from and to")
	}
	if req.To.Before(req.From) {
		return models.Report{}, apperrors.NewBadRequest("report period ends before it starts")
	}

	period := models.ReportPeriod{From: req.From, To: req.To}
	filters := models.ReportFilters{
		UserID:        strings.TrimSpace(req.UserID),
		AccessPointID: strings.TrimSpace(req.AccessPointID),
	}

	var (
		selected []models.AccessEvent
		summary  models.ReportSummary
	)
	for _, e := range s.events.All() {
		if !period.Contains(e.Timestamp) {
			continue
		}
		if filters.UserID != "" && e.UserID != filters.UserID {
			continue
		}
		if filters.AccessPointID != "" && e.AccessPointID != filters.AccessPointID {
			continue
		}

		selected = append(selected, e)
		summary.TotalEvents++
		switch e.Result {
		case models.ResultSuccess:
			summary.SuccessfulEvents++
		case models.ResultFailure:
			summary.FailedEvents++
		}
		if e.Severity == models.SeverityCritical {
			summary.SecurityIncidents++
		}
		if e.IsAnomaly {
			summary.AnomalyEvents++
		}
	}

	report := models.Report{
		Period:      period,
		Filters:     filters,
		Summary:     summary,
		GeneratedAt: s.now(),
	}
	if req.IncludeDetails {
		detailed := make([]models.AccessEvent, len(selected))
		copy(detailed, selected)
		report.Events = detailed
	} else {
		compact := make([]models.EventSummary, 0, len(selected))
		for _, e := range selected {
			compact = append(compact, models.Summarize(e))
		}
		report.Events = compact
	}
	return report, nil
}
