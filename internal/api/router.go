package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/portcullis/internal/app"
	"github.com/charlesng35/portcullis/internal/handlers"
	"github.com/charlesng35/portcullis/internal/middleware"
	"github.com/charlesng35/portcullis/internal/monitoring"
)

// Dependencies are the services behind the HTTP surface. Archive, Passes, Monitoring and
// RateStore are optional; leave them nil (untyped) to disable the matching feature.
type Dependencies struct {
	Config       *app.Config
	Engine       handlers.AccessAttempter
	AccessPoints handlers.AccessPointStore
	Permissions  handlers.PermissionStore
	Audit        handlers.AuditReader
	Archive      handlers.ArchiveReader
	Metrics      handlers.MetricsReader
	Reports      handlers.ReportGenerator
	Passes       handlers.PassIssuer
	Monitoring   *monitoring.Module
	RateStore    middleware.RateStore
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("api: config must be provided")
	case d.Engine == nil:
		return errors.New("api: authorization engine must be provided")
	case d.AccessPoints == nil:
		return errors.New("api: access point registry must be provided")
	case d.Permissions == nil:
		return errors.New("api: permission store must be provided")
	case d.Audit == nil:
		return errors.New("api: audit log must be provided")
	case d.Metrics == nil:
		return errors.New("api: metrics service must be provided")
	case d.Reports == nil:
		return errors.New("api: report service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, deps.Monitoring, cfg.Monitoring.Prometheus)

	api := r.Group("/api")
	if limit := cfg.Server.RateLimit; limit.Enabled && deps.RateStore != nil {
		window := limit.Window
		if window <= 0 {
			window = time.Minute
		}
		api.Use(middleware.RateLimit(deps.RateStore, limit.Requests, window))
	}

	// Device-facing route; devices do not hold admin tokens.
	registerAccessRoutes(api, handlers.NewAccessHandler(deps.Engine))

	admin := api.Group("")
	admin.Use(middleware.AdminAuth(cfg.Auth.AdminSecret))

	registerAccessPointRoutes(admin, handlers.NewAccessPointHandler(deps.AccessPoints))
	registerPermissionRoutes(admin, handlers.NewPermissionHandler(deps.Permissions, deps.AccessPoints))
	registerAuditRoutes(admin, handlers.NewAuditHandler(deps.Audit, deps.Archive))
	registerMonitoringRoutes(admin, handlers.NewMetricsHandler(deps.Metrics), handlers.NewReportHandler(deps.Reports))
	registerPassRoutes(admin, handlers.NewPassHandler(deps.Passes))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
