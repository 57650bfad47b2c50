package accesspoints

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charlesng35/portcullis/internal/auditctx"
	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
)

// Option customises a Registry.
type Option func(*Registry)

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithPublisher routes change notifications to publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(r *Registry) {
		if publisher != nil {
			r.publisher = publisher
		}
	}
}

// Registry is the in-memory catalogue of access points. Listing preserves creation order.
type Registry struct {
	mu     sync.RWMutex
	points []models.AccessPoint

	now       func() time.Time
	publisher events.Publisher
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now:       time.Now,
		publisher: events.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns a copy of the access point with id.
func (r *Registry) Get(id string) (models.AccessPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if idx := r.indexOf(id); idx >= 0 {
		return r.points[idx], true
	}
	return models.AccessPoint{}, false
}

// List returns copies of every access point in creation order.
func (r *Registry) List() []models.AccessPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AccessPoint, len(r.points))
	copy(out, r.points)
	return out
}

// Len returns the number of registered access points.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

// Create stores point, assigning an id when none is given and stamping both timestamps.
// A point whose id is already taken receives a fresh id.
func (r *Registry) Create(ctx context.Context, point models.AccessPoint) models.AccessPoint {
	now := r.now()

	r.mu.Lock()
	point.ID = strings.TrimSpace(point.ID)
	if point.ID == "" || r.indexOf(point.ID) >= 0 {
		point.ID = uuid.NewString()
	}
	if point.Status == "" {
		point.Status = models.AccessPointActive
	}
	point.CreatedAt = now
	point.UpdatedAt = now
	r.points = append(r.points, point)
	r.mu.Unlock()

	r.publish(ctx, events.AccessPointCreated, point)
	return point
}

// Update merges patch into the point with id and bumps UpdatedAt. It reports false when
// the id is unknown.
func (r *Registry) Update(ctx context.Context, id string, patch models.AccessPointPatch) (models.AccessPoint, bool) {
	now := r.now()

	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return models.AccessPoint{}, false
	}
	point := r.points[idx]
	patch.Apply(&point)
	point.UpdatedAt = now
	r.points[idx] = point
	r.mu.Unlock()

	r.publish(ctx, events.AccessPointUpdated, point)
	return point, true
}

// Delete removes the point with id. Permissions that reference it are left in place and
// simply stop matching. It reports false when the id is unknown.
func (r *Registry) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	point := r.points[idx]
	r.points = append(r.points[:idx], r.points[idx+1:]...)
	r.mu.Unlock()

	r.publish(ctx, events.AccessPointDeleted, point)
	return true
}

func (r *Registry) indexOf(id string) int {
	for i := range r.points {
		if r.points[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) publish(ctx context.Context, kind events.Type, point models.AccessPoint) {
	r.publisher.Publish(events.Event{
		Type:        kind,
		OccurredAt:  r.now(),
		Actor:       auditctx.ActorOrSystem(ctx),
		AccessPoint: &point,
	})
}
