package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/logger"
)

const (
	defaultArchiveRetentionDays = 90
	defaultMetricsSpec          = "@every 1m"
	defaultArchiveSpec          = "@daily"
)

// MetricsRefresher recomputes the metrics snapshot. Hour buckets and permission validity
// depend on wall time, so the snapshot goes stale without events.
type MetricsRefresher interface {
	Refresh() models.Metrics
}

// ArchivePruner removes archived audit events older than a retention window.
type ArchivePruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler runs periodic maintenance jobs on a cron scheduler.
type Scheduler struct {
	metrics   MetricsRefresher
	archive   ArchivePruner
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	metricsSchedule string
	archiveSchedule string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithArchiveRetentionDays adjusts how long archived events are kept.
func WithArchiveRetentionDays(days int) Option {
	return func(s *Scheduler) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithMetricsSchedule overrides the cron specification for metrics refresh.
func WithMetricsSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.metricsSchedule = spec
		}
	}
}

// WithArchiveSchedule overrides the cron specification for archive retention.
func WithArchiveSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.archiveSchedule = spec
		}
	}
}

// NewScheduler constructs a Scheduler. A nil dependency skips the corresponding job.
func NewScheduler(metrics MetricsRefresher, archive ArchivePruner, opts ...Option) *Scheduler {
	s := &Scheduler{
		metrics:         metrics,
		archive:         archive,
		retention:       defaultArchiveRetentionDays,
		metricsSchedule: defaultMetricsSpec,
		archiveSchedule: defaultArchiveSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (s *Scheduler) Start() error {
	if s.metrics == nil && s.archive == nil {
		return nil
	}

	if s.metrics != nil {
		if _, err := s.cron.AddFunc(s.metricsSchedule, s.refreshMetrics); err != nil {
			return fmt.Errorf("maintenance: metrics schedule %q: %w", s.metricsSchedule, err)
		}
	}

	if s.archive != nil {
		if _, err := s.cron.AddFunc(s.archiveSchedule, func() {
			if err := s.pruneArchive(context.Background()); err != nil {
				s.log.Warn("archive cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: archive schedule %q: %w", s.archiveSchedule, err)
		}
	}

	s.cron.Start()
	s.log.Info("maintenance scheduler started",
		zap.Int("jobs", len(s.cron.Entries())),
		zap.Int("archive_retention_days", s.retention),
	)
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and at shutdown.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var errs error

	if s.metrics != nil {
		s.refreshMetrics()
	}

	if s.archive != nil {
		errs = multierr.Append(errs, s.pruneArchive(ctx))
	}

	return errs
}

func (s *Scheduler) refreshMetrics() {
	snapshot := s.metrics.Refresh()
	s.log.Debug("metrics refreshed",
		zap.Int("total_events", snapshot.TotalEvents),
		zap.Float64("success_rate", snapshot.SuccessRate),
	)
}

func (s *Scheduler) pruneArchive(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	removed, err := s.archive.CleanupOlderThan(ctx, s.retention)
	if err != nil {
		return fmt.Errorf("maintenance: archive cleanup: %w", err)
	}
	if removed > 0 {
		s.log.Info("archived events pruned", zap.Int64("removed", removed), zap.Int("retention_days", s.retention))
	}
	return nil
}
