package services

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/logger"
)

// AccessPointLister lists every access point.
type AccessPointLister interface {
	List() []models.AccessPoint
}

// PermissionLister lists every permission, active or not.
type PermissionLister interface {
	List() []models.Permission
}

// EventLister lists retained audit events, newest first.
type EventLister interface {
	All() []models.AccessEvent
}

// MetricsOption customises a MetricsService.
type MetricsOption func(*MetricsService)

// WithMetricsClock injects a custom clock, primarily for testing.
func WithMetricsClock(clock func() time.Time) MetricsOption {
	return func(s *MetricsService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithMetricsLocation sets the zone used for hour-of-day buckets.
func WithMetricsLocation(loc *time.Location) MetricsOption {
	return func(s *MetricsService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// MetricsService keeps the latest metrics snapshot, recomputing it whenever a domain
// event is observed.
type MetricsService struct {
	points AccessPointLister
	perms  PermissionLister
	events EventLister

	loc *time.Location
	now func() time.Time
	log *zap.Logger

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   models.Metrics
}

// NewMetricsService constructs the service and computes an initial snapshot.
func NewMetricsService(points AccessPointLister, perms PermissionLister, evts EventLister, opts ...MetricsOption) (*MetricsService, error) {
	if points == nil {
		return nil, errors.New("metrics service: access points are required")
	}
	if perms == nil {
		return nil, errors.New("metrics service: permissions are required")
	}
	if evts == nil {
		return nil, errors.New("metrics service: audit log is required")
	}

	svc := &MetricsService{
		points: points,
		perms:  perms,
		events: evts,
		loc:    time.UTC,
		now:    time.Now,
		log:    logger.WithModule("metrics"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.Refresh()
	return svc, nil
}

// Subscribe recomputes the snapshot on every event published on bus.
func (s *MetricsService) Subscribe(bus *events.Bus) {
	bus.Subscribe(func(events.Event) { s.Refresh() })
}

// Refresh recomputes and stores the snapshot, returning it. Concurrent refreshes are
// serialised so an older snapshot never replaces a newer one.
func (s *MetricsService) Refresh() models.Metrics {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snapshot := Recompute(s.points.List(), s.perms.List(), s.events.All(), s.loc)
	snapshot.ComputedAt = s.now()

	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()

	s.log.Debug("metrics refreshed",
		zap.Int("events", snapshot.TotalEvents),
		zap.Int("active_permissions", snapshot.ActivePermissions),
	)
	return snapshot
}

// Snapshot returns the latest computed metrics. The maps it holds are shared and must
// not be modified.
func (s *MetricsService) Snapshot() models.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
