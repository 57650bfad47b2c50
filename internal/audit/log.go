package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/logger"
)

// DefaultCapacity is the number of events retained before the oldest are evicted.
const DefaultCapacity = 10000

// Sink receives every appended event, e.g. for durable archival. Write must not block;
// errors are logged and never reach the appender.
type Sink interface {
	Write(event models.AccessEvent) error
}

// Option customises a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(capacity int) Option {
	return func(l *Log) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithClock injects a custom clock used for events appended without a timestamp.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithPublisher announces appended events on publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(l *Log) {
		if publisher != nil {
			l.publisher = publisher
		}
	}
}

// WithSink adds a sink that receives every appended event.
func WithSink(sink Sink) Option {
	return func(l *Log) {
		if sink != nil {
			l.sinks = append(l.sinks, sink)
		}
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.log = log
		}
	}
}

// Log is a bounded, newest-first record of access events. Once full, each append
// evicts the oldest event.
type Log struct {
	mu       sync.RWMutex
	buf      []models.AccessEvent
	next     int
	capacity int

	now       func() time.Time
	publisher events.Publisher
	sinks     []Sink
	log       *zap.Logger
}

// NewLog constructs an empty log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		capacity:  DefaultCapacity,
		now:       time.Now,
		publisher: events.Nop{},
		log:       logger.WithModule("audit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records event with a fresh id and returns that id. A zero timestamp is
// replaced with the current time.
func (l *Log) Append(event models.AccessEvent) string {
	event.ID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	l.mu.Lock()
	if len(l.buf) < l.capacity {
		l.buf = append(l.buf, event)
		l.next = len(l.buf) % l.capacity
	} else {
		l.buf[l.next] = event
		l.next = (l.next + 1) % l.capacity
	}
	l.mu.Unlock()

	for _, sink := range l.sinks {
		if err := sink.Write(event); err != nil {
			l.log.Warn("audit sink rejected event",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	l.publisher.Publish(events.Event{
		Type:       events.AuditAppended,
		OccurredAt: event.Timestamp,
		AuditEvent: &event,
	})

	return event.ID
}

// All returns a copy of every retained event, newest first.
func (l *Log) All() []models.AccessEvent {
	return l.collect(func(models.AccessEvent) bool { return true })
}

// ByUser returns retained events for userID, newest first.
func (l *Log) ByUser(userID string) []models.AccessEvent {
	return l.collect(func(e models.AccessEvent) bool { return e.UserID == userID })
}

// ByAccessPoint returns retained events for accessPointID, newest first.
func (l *Log) ByAccessPoint(accessPointID string) []models.AccessEvent {
	return l.collect(func(e models.AccessEvent) bool { return e.AccessPointID == accessPointID })
}

// Get returns the retained event with id.
func (l *Log) Get(id string) (models.AccessEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.buf {
		if l.buf[i].ID == id {
			return l.buf[i], true
		}
	}
	return models.AccessEvent{}, false
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buf)
}

// Capacity returns the maximum number of retained events.
func (l *Log) Capacity() int {
	return l.capacity
}

func (l *Log) collect(keep func(models.AccessEvent) bool) []models.AccessEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.buf)
	out := make([]models.AccessEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := ((l.next-1-i)%n + n) % n
		if keep(l.buf[idx]) {
			out = append(out, l.buf[idx])
		}
	}
	return out
}
