package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/portcullis/internal/accesspoints"
	"github.com/charlesng35/portcullis/internal/api"
	"github.com/charlesng35/portcullis/internal/app"
	"github.com/charlesng35/portcullis/internal/app/maintenance"
	"github.com/charlesng35/portcullis/internal/archive"
	"github.com/charlesng35/portcullis/internal/audit"
	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/database"
	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/middleware"
	"github.com/charlesng35/portcullis/internal/monitoring"
	"github.com/charlesng35/portcullis/internal/monitoring/checks"
	"github.com/charlesng35/portcullis/internal/passes"
	"github.com/charlesng35/portcullis/internal/permissions"
	"github.com/charlesng35/portcullis/internal/services"
	"github.com/charlesng35/portcullis/pkg/logger"
)

const archiveProbeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Bus          *events.Bus
	AccessPoints *accesspoints.Registry
	Permissions  *permissions.Store
	Audit        *audit.Log
	Metrics      *services.MetricsService
	Monitoring   *monitoring.Module
	ArchiveDB    *gorm.DB
	Archive      *archive.Store
	Scheduler    *maintenance.Scheduler
	RateStore    *middleware.MemoryRateStore
	Router       *gin.Engine
}

// bootstrapRuntime builds the stores, the engine, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}

	stack.Bus = events.NewBus()
	stack.AccessPoints = accesspoints.NewRegistry(accesspoints.WithPublisher(stack.Bus))
	stack.Permissions = permissions.NewStore(permissions.WithPublisher(stack.Bus))

	logOpts := []audit.Option{
		audit.WithCapacity(cfg.Engine.AuditCapacity),
		audit.WithPublisher(stack.Bus),
	}
	if cfg.Archive.Enabled {
		if err := stack.openArchive(cfg.Archive); err != nil {
			return nil, err
		}
		logOpts = append(logOpts, audit.WithSink(stack.Archive))
		log.Info("audit archive enabled",
			zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Archive.Driver))),
			zap.Int("retention_days", cfg.Archive.RetentionDays),
		)
	}
	stack.Audit = audit.NewLog(logOpts...)
	audit.NewRecorder(stack.Audit, stack.AccessPoints).Subscribe(stack.Bus)

	var (
		issuer   *passes.Issuer
		credOpts []credentials.Option
	)
	if cfg.Passes.Enabled {
		issuer, err = passes.NewIssuer(passes.Config{
			Secret: cfg.Passes.Secret,
			Issuer: cfg.Passes.Issuer,
			TTL:    cfg.Passes.TTL,
			QRSize: cfg.Passes.QRSize,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise pass issuer: %w", err)
		}
		credOpts = append(credOpts, credentials.WithPassVerifier(func(token string) error {
			_, err := issuer.Verify(token)
			return err
		}))
	}

	engine, err := services.NewAuthorizationService(
		stack.AccessPoints,
		stack.Permissions,
		credentials.NewDefaultRegistry(credOpts...),
		stack.Audit,
		services.WithUserDirectory(stack.Permissions),
		services.WithAuthorizationClock(engineClock(loc)),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise authorization service: %w", err)
	}

	stack.Metrics, err = services.NewMetricsService(stack.AccessPoints, stack.Permissions, stack.Audit,
		services.WithMetricsLocation(loc),
		services.WithMetricsClock(engineClock(loc)),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise metrics service: %w", err)
	}
	stack.Metrics.Subscribe(stack.Bus)

	reports, err := services.NewReportService(stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise report service: %w", err)
	}

	result, err := app.Seed(ctx, cfg.Seed, stack.AccessPoints, stack.Permissions)
	if err != nil {
		return nil, err
	}
	if result.AccessPoints > 0 || result.Permissions > 0 {
		log.Info("seed data loaded",
			zap.Int("access_points", result.AccessPoints),
			zap.Int("permissions", result.Permissions),
		)
	}

	stack.Monitoring, err = monitoring.NewModule(stack.Metrics, monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	health := stack.Monitoring.Health()
	health.Register(checks.MetricsFreshness(stack.Metrics, 0, nil))
	if stack.ArchiveDB != nil {
		health.Register(checks.Archive(stack.ArchiveDB, archiveProbeTimeout))
	}

	if cfg.Maintenance.Enabled {
		var pruner maintenance.ArchivePruner
		if stack.Archive != nil {
			pruner = stack.Archive
		}
		stack.Scheduler = maintenance.NewScheduler(stack.Metrics, pruner,
			maintenance.WithMetricsSchedule(cfg.Maintenance.MetricsRefresh),
			maintenance.WithArchiveSchedule(cfg.Maintenance.ArchiveCleanup),
			maintenance.WithArchiveRetentionDays(cfg.Archive.RetentionDays),
		)
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	deps := api.Dependencies{
		Config:       cfg,
		Engine:       engine,
		AccessPoints: stack.AccessPoints,
		Permissions:  stack.Permissions,
		Audit:        stack.Audit,
		Metrics:      stack.Metrics,
		Reports:      reports,
		Monitoring:   stack.Monitoring,
	}
	if stack.Archive != nil {
		deps.Archive = stack.Archive
	}
	if issuer != nil {
		passSvc, err := services.NewPassService(stack.AccessPoints, stack.Permissions, issuer)
		if err != nil {
			return nil, fmt.Errorf("initialise pass service: %w", err)
		}
		deps.Passes = passSvc
	}
	if cfg.Server.RateLimit.Enabled {
		stack.RateStore = middleware.NewMemoryRateStore(cfg.Server.RateLimit.Window)
		deps.RateStore = stack.RateStore
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) openArchive(cfg app.ArchiveConfig) error {
	db, err := database.Open(cfg.Database())
	if err != nil {
		return fmt.Errorf("open archive database: %w", err)
	}
	s.ArchiveDB = db

	store, err := archive.NewStore(db,
		archive.WithQueueSize(cfg.QueueSize),
		archive.WithBatchSize(cfg.BatchSize),
		archive.WithFlushInterval(cfg.FlushInterval),
	)
	if err != nil {
		return err
	}
	store.Start()
	s.Archive = store
	return nil
}

// Shutdown stops background jobs and flushes the archive before closing its database.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}
	if log == nil {
		log = logger.WithModule("bootstrap")
	}

	if s.Scheduler != nil {
		stopCtx := s.Scheduler.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Scheduler.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown run failed", zap.Error(err))
		}
	}

	if s.RateStore != nil {
		s.RateStore.Close()
	}

	if s.Archive != nil {
		if err := s.Archive.Close(); err != nil {
			log.Warn("archive shutdown", zap.Error(err))
		}
	}

	if s.ArchiveDB != nil {
		if err := database.Close(s.ArchiveDB); err != nil {
			log.Warn("failed to close archive database", zap.Error(err))
		}
	}
}

// engineClock reports wall time in the engine timezone, which schedules without their
// own timezone are evaluated in.
func engineClock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}
