package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/portcullis/internal/accesspoints"
	"github.com/charlesng35/portcullis/internal/audit"
	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/middleware"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/internal/monitoring"
	"github.com/charlesng35/portcullis/internal/passes"
	"github.com/charlesng35/portcullis/internal/permissions"
	"github.com/charlesng35/portcullis/internal/services"
	"github.com/charlesng35/portcullis/pkg/response"
)

// 2025-06-02 is a Monday.
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	t       *testing.T
	router  *gin.Engine
	points  *accesspoints.Registry
	perms   *permissions.Store
	log     *audit.Log
	metrics *services.MetricsService
}

type envOptions struct {
	archive  ArchiveReader
	noPasses bool
	health   *monitoring.HealthManager
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return testNow }

	bus := events.NewBus()
	points := accesspoints.NewRegistry(accesspoints.WithClock(clock), accesspoints.WithPublisher(bus))
	perms := permissions.NewStore(permissions.WithClock(clock), permissions.WithPublisher(bus))
	log := audit.NewLog(audit.WithClock(clock), audit.WithPublisher(bus))
	audit.NewRecorder(log, points).Subscribe(bus)

	issuer, err := passes.NewIssuer(passes.Config{Secret: "handler-test-secret-0123"}, passes.WithClock(clock))
	require.NoError(t, err)

	creds := credentials.NewDefaultRegistry(credentials.WithClock(clock))
	engine, err := services.NewAuthorizationService(points, perms, creds, log, services.WithAuthorizationClock(clock))
	require.NoError(t, err)

	metricsSvc, err := services.NewMetricsService(points, perms, log, services.WithMetricsClock(clock))
	require.NoError(t, err)
	metricsSvc.Subscribe(bus)

	reports, err := services.NewReportService(log, services.WithReportClock(clock))
	require.NoError(t, err)

	var passHandler *PassHandler
	if opts.noPasses {
		passHandler = NewPassHandler(nil)
	} else {
		passSvc, err := services.NewPassService(points, perms, issuer, services.WithPassClock(clock))
		require.NoError(t, err)
		passHandler = NewPassHandler(passSvc)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api")
	api.POST("/access/attempt", NewAccessHandler(engine).Attempt)

	admin := api.Group("")
	admin.Use(middleware.AdminAuth(""))

	apHandler := NewAccessPointHandler(points)
	admin.GET("/access-points", apHandler.List)
	admin.POST("/access-points", apHandler.Create)
	admin.GET("/access-points/:id", apHandler.Get)
	admin.PATCH("/access-points/:id", apHandler.Update)
	admin.DELETE("/access-points/:id", apHandler.Delete)

	permHandler := NewPermissionHandler(perms, points)
	admin.GET("/permissions", permHandler.List)
	admin.POST("/permissions", permHandler.Grant)
	admin.GET("/permissions/:id", permHandler.Get)
	admin.PATCH("/permissions/:id", permHandler.Update)
	admin.POST("/permissions/:id/revoke", permHandler.Revoke)

	auditHandler := NewAuditHandler(log, opts.archive)
	admin.GET("/audit", auditHandler.List)
	admin.GET("/audit/archive", auditHandler.Archive)
	admin.GET("/audit/archive/export", auditHandler.Export)
	admin.GET("/audit/:id", auditHandler.Get)

	admin.GET("/metrics/summary", NewMetricsHandler(metricsSvc).Summary)
	admin.POST("/reports", NewReportHandler(reports).Generate)
	admin.POST("/passes", passHandler.Issue)

	r.GET("/health", Health(opts.health))

	return &testEnv{t: t, router: r, points: points, perms: perms, log: log, metrics: metricsSvc}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()

	var envelope struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Response
}

func (e *testEnv) addPoint(id, name string) models.AccessPoint {
	return e.points.Create(context.Background(), models.AccessPoint{
		ID:      id,
		Name:    name,
		Type:    models.AccessPointDoor,
		Enabled: true,
	})
}

func weekdays() models.Schedule {
	return models.Schedule{Days: []int{1, 2, 3, 4, 5}, StartTime: "08:00", EndTime: "18:00"}
}

func (e *testEnv) grant(userID, pointID string, methods ...string) models.Permission {
	return e.perms.Grant(context.Background(), models.Permission{
		UserID:        userID,
		UserName:      "Alice",
		AccessPointID: pointID,
		AccessMethods: methods,
		Schedule:      weekdays(),
	})
}
