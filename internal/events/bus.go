package events

import (
	"sync"
	"time"

	"github.com/charlesng35/portcullis/internal/auditctx"
	"github.com/charlesng35/portcullis/internal/models"
)

// Type names a domain event.
type Type string

const (
	AccessPointCreated Type = "access_point.created"
	AccessPointUpdated Type = "access_point.updated"
	AccessPointDeleted Type = "access_point.deleted"
	PermissionGranted  Type = "permission.granted"
	PermissionUpdated  Type = "permission.updated"
	PermissionRevoked  Type = "permission.revoked"
	AuditAppended      Type = "audit.appended"
)

// Event is a notification that domain state changed. Exactly one of the
// payload pointers is set, matching Type.
type Event struct {
	Type        Type
	OccurredAt  time.Time
	Actor       auditctx.Actor
	AccessPoint *models.AccessPoint
	Permission  *models.Permission
	AuditEvent  *models.AccessEvent
}

// Handler reacts to an event. Handlers run synchronously on the publisher's goroutine.
type Handler func(Event)

// Publisher is implemented by anything that can fan out domain events.
type Publisher interface {
	Publish(Event)
}

// Bus is an in-process, synchronous publish/subscribe hub.
type Bus struct {
	mu       sync.RWMutex
	byType   map[Type][]Handler
	wildcard []Handler
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{byType: make(map[Type][]Handler)}
}

// Subscribe registers handler for the listed types, or for every type when none are given.
func (b *Bus) Subscribe(handler Handler, types ...Type) {
	if handler == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(types) == 0 {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	for _, t := range types {
		b.byType[t] = append(b.byType[t], handler)
	}
}

// Publish delivers evt to subscribers in registration order. The subscriber list is
// snapshotted first so handlers may publish further events.
func (b *Bus) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byType[evt.Type])+len(b.wildcard))
	handlers = append(handlers, b.byType[evt.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(evt)
	}
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(Event) {}
