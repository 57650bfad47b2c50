package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/logger"
	"github.com/charlesng35/portcullis/pkg/metrics"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	maxPageSize          = 500
)

// Filters narrows archive queries. Zero values match everything.
type Filters struct {
	UserID        string
	AccessPointID string
	Method        string
	Action        string
	Result        string
	Severity      string
	AnomalyOnly   bool
	Since         *time.Time
	Until         *time.Time
}

// ListOptions controls pagination for List.
type ListOptions struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Option customises a Store.
type Option func(*Store)

// WithQueueSize bounds the number of events waiting to be written.
func WithQueueSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBatchSize sets how many events are written per insert.
func WithBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithFlushInterval sets how long queued events may wait before a partial batch is written.
func WithFlushInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithClock injects a custom clock used for retention cutoffs.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Store persists audit events to a SQL database. Write is non-blocking: events are
// queued and inserted in batches by a background goroutine started with Start.
type Store struct {
	db  *gorm.DB
	log *zap.Logger

	queueSize     int
	batchSize     int
	flushInterval time.Duration
	now           func() time.Time

	mu        sync.RWMutex
	closed    bool
	queue     chan models.AccessEvent
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore migrates the archive schema and returns a Store.
func NewStore(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("archive: db is required")
	}

	s := &Store{
		db:            db,
		log:           logger.WithModule("archive"),
		queueSize:     defaultQueueSize,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan models.AccessEvent, s.queueSize)

	if err := db.AutoMigrate(&ArchivedEvent{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return s, nil
}

// Start launches the background writer. Calling it more than once has no effect.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Close stops accepting events, writes everything still queued and waits for the
// writer to finish.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		s.Start()
	})
	s.wg.Wait()
	return nil
}

// Write queues event for archival without blocking.
func (s *Store) Write(event models.AccessEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	select {
	case s.queue <- event:
		return nil
	default:
		metrics.ArchiveDropped.Inc()
		return ErrQueueFull
	}
}

// Save writes events synchronously. Events already archived are skipped.
func (s *Store) Save(ctx context.Context, events ...models.AccessEvent) error {
	ctx = ensureContext(ctx)
	if len(events) == 0 {
		return nil
	}

	rows := make([]ArchivedEvent, 0, len(events))
	for _, event := range events {
		row, err := toRow(event)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).CreateInBatches(&rows, s.batchSize).Error
	if err == nil {
		return nil
	}
	if !isUniqueConstraintError(err) {
		return fmt.Errorf("archive: save: %w", err)
	}

	// A batch containing a duplicate fails as a whole; retry row by row.
	for i := range rows {
		if err := s.db.WithContext(ctx).Create(&rows[i]).Error; err != nil && !isUniqueConstraintError(err) {
			return fmt.Errorf("archive: save %s: %w", rows[i].ID, err)
		}
	}
	return nil
}

// List returns archived events newest first, paginated, with the total match count.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]models.AccessEvent, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > maxPageSize {
		perPage = 50
	}

	var (
		rows  []ArchivedEvent
		total int64
	)

	query := func() *gorm.DB {
		return applyFilters(s.db.WithContext(ctx).Model(&ArchivedEvent{}), opts.Filters)
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("archive: count events: %w", err)
	}
	if err := query().
		Order("occurred_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("archive: list events: %w", err)
	}

	return toModels(rows), total, nil
}

// Export returns every archived event matching filters, newest first.
func (s *Store) Export(ctx context.Context, filters Filters) ([]models.AccessEvent, error) {
	ctx = ensureContext(ctx)

	var rows []ArchivedEvent
	if err := applyFilters(s.db.WithContext(ctx).Model(&ArchivedEvent{}), filters).
		Order("occurred_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: export events: %w", err)
	}
	return toModels(rows), nil
}

// CleanupOlderThan removes events that occurred more than retentionDays ago.
func (s *Store) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("archive: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays).UTC()
	result := s.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&ArchivedEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("archive: cleanup events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]models.AccessEvent, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		defer cancel()
		if err := s.Save(ctx, batch...); err != nil {
			s.log.Error("archive batch failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.AccessPointID != "" {
		query = query.Where("access_point_id = ?", filters.AccessPointID)
	}
	if filters.Method != "" {
		query = query.Where("method = ?", filters.Method)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.AnomalyOnly {
		query = query.Where("is_anomaly = ?", true)
	}
	if filters.Since != nil {
		query = query.Where("occurred_at >= ?", filters.Since.UTC())
	}
	if filters.Until != nil {
		query = query.Where("occurred_at <= ?", filters.Until.UTC())
	}
	return query
}

func toModels(rows []ArchivedEvent) []models.AccessEvent {
	out := make([]models.AccessEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
