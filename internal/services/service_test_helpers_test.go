package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/portcullis/internal/accesspoints"
	"github.com/charlesng35/portcullis/internal/audit"
	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/internal/permissions"
)

// 2025-06-02 is a Monday.
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type engineFixture struct {
	clock   *time.Time
	bus     *events.Bus
	points  *accesspoints.Registry
	perms   *permissions.Store
	log     *audit.Log
	engine  *AuthorizationService
	metrics *MetricsService
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	current := testNow
	clock := func() time.Time { return current }

	bus := events.NewBus()
	points := accesspoints.NewRegistry(accesspoints.WithClock(clock), accesspoints.WithPublisher(bus))
	perms := permissions.NewStore(permissions.WithClock(clock), permissions.WithPublisher(bus))
	log := audit.NewLog(audit.WithClock(clock), audit.WithPublisher(bus))
	audit.NewRecorder(log, points).Subscribe(bus)

	engine, err := NewAuthorizationService(points, perms,
		credentials.NewDefaultRegistry(credentials.WithClock(clock)), log,
		WithAuthorizationClock(clock))
	require.NoError(t, err)

	metricsSvc, err := NewMetricsService(points, perms, log, WithMetricsClock(clock))
	require.NoError(t, err)
	metricsSvc.Subscribe(bus)

	return &engineFixture{
		clock:   &current,
		bus:     bus,
		points:  points,
		perms:   perms,
		log:     log,
		engine:  engine,
		metrics: metricsSvc,
	}
}

func (f *engineFixture) setNow(ts time.Time) {
	*f.clock = ts
}

func (f *engineFixture) addPoint(name string, enabled bool) models.AccessPoint {
	return f.points.Create(context.Background(), models.AccessPoint{
		Name:    name,
		Type:    models.AccessPointDoor,
		Enabled: enabled,
	})
}

func (f *engineFixture) grant(userID, pointID string, methods ...string) models.Permission {
	return f.perms.Grant(context.Background(), models.Permission{
		UserID:        userID,
		UserName:      "Alice",
		AccessPointID: pointID,
		AccessMethods: methods,
		Schedule: models.Schedule{
			Days:      []int{1, 2, 3, 4, 5},
			StartTime: "08:00",
			EndTime:   "18:00",
		},
	})
}
