package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/portcullis/internal/models"
)

type countingRefresher struct {
	calls int
}

func (r *countingRefresher) Refresh() models.Metrics {
	r.calls++
	return models.Metrics{TotalEvents: r.calls}
}

type stubPruner struct {
	days    []int
	removed int64
	err     error
}

func (p *stubPruner) CleanupOlderThan(_ context.Context, retentionDays int) (int64, error) {
	p.days = append(p.days, retentionDays)
	return p.removed, p.err
}

func newTestCron() *cron.Cron {
	return cron.New(cron.WithLogger(cron.DiscardLogger))
}

func TestSchedulerRunOnce(t *testing.T) {
	refresher := &countingRefresher{}
	pruner := &stubPruner{removed: 3}

	s := NewScheduler(refresher, pruner, WithArchiveRetentionDays(7), WithCron(newTestCron()))
	require.NoError(t, s.RunOnce(context.Background()))

	require.Equal(t, 1, refresher.calls)
	require.Equal(t, []int{7}, pruner.days)
}

func TestSchedulerRunOnceReturnsPruneError(t *testing.T) {
	refresher := &countingRefresher{}
	pruner := &stubPruner{err: errors.New("disk full")}

	s := NewScheduler(refresher, pruner, WithCron(newTestCron()))
	err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Equal(t, 1, refresher.calls)
	require.Equal(t, []int{defaultArchiveRetentionDays}, pruner.days)
}

func TestSchedulerRunOnceCancelled(t *testing.T) {
	refresher := &countingRefresher{}
	s := NewScheduler(refresher, nil, WithCron(newTestCron()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.RunOnce(ctx), context.Canceled)
	require.Zero(t, refresher.calls)
}

func TestSchedulerStartRegistersJobs(t *testing.T) {
	c := newTestCron()
	s := NewScheduler(&countingRefresher{}, &stubPruner{},
		WithCron(c),
		WithMetricsSchedule("@every 1h"),
		WithArchiveSchedule("0 3 * * *"),
	)

	require.NoError(t, s.Start())
	t.Cleanup(func() { <-s.Stop().Done() })
	require.Len(t, c.Entries(), 2)
}

func TestSchedulerStartSkipsMissingDependencies(t *testing.T) {
	c := newTestCron()
	s := NewScheduler(&countingRefresher{}, nil, WithCron(c))

	require.NoError(t, s.Start())
	t.Cleanup(func() { <-s.Stop().Done() })
	require.Len(t, c.Entries(), 1)

	idle := NewScheduler(nil, nil, WithCron(newTestCron()))
	require.NoError(t, idle.Start())
	require.NoError(t, idle.RunOnce(context.Background()))
}

func TestSchedulerStartRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, nil, WithCron(newTestCron()), WithMetricsSchedule("not a spec"))

	err := s.Start()
	require.Error(t, err)
	require.Contains(t, err.Error(), "metrics schedule")
}
