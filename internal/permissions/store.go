package permissions

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

// Option customises a Store.
type Option func(*Store)

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPublisher routes change notifications to publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Store) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// Store keeps permission grants in memory. Revoked grants are retained, inactive.
type Store struct {
	mu          sync.RWMutex
	permissions []models.Permission

	now       func() time.Time
	publisher events.Publisher
}

// NewStore constructs an empty permission store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		publisher: events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant stores a new active permission. The id, GrantedAt and Active fields are always
// assigned by the store; ValidFrom defaults to now and GrantedBy to the context actor.
func (s *Store) Grant(ctx context.Context, perm models.Permission) models.Permission {
	now := s.now()
	actor := auditctx.ActorOrSystem(ctx)

	perm = perm.Clone()
	perm.ID = uuid.NewString()
	perm.Active = true
	perm.GrantedAt = now
	perm.RevokedAt = nil
	perm.RevokedBy = ""
	if perm.ValidFrom.IsZero() {
		perm.ValidFrom = now
	}
	if strings.TrimSpace(perm.GrantedBy) == "" {
		perm.GrantedBy = actor.Label()
	}

	s.mu.Lock()
	s.permissions = append(s.permissions, perm)
	s.mu.Unlock()

	s.publish(actor, events.PermissionGranted, perm.Clone())
	return perm.Clone()
}

// Revoke deactivates the permission with id. It returns true only when this call
// changed an active permission to inactive, so a second revoke returns false.
func (s *Store) Revoke(ctx context.Context, id, revokedBy string) bool {
	now := s.now()
	actor := auditctx.ActorOrSystem(ctx)
	if strings.TrimSpace(revokedBy) == "" {
		revokedBy = actor.Label()
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || !s.permissions[idx].Active {
		s.mu.Unlock()
		return false
	}
	perm := &s.permissions[idx]
	perm.Active = false
	perm.RevokedBy = revokedBy
	perm.RevokedAt = &now
	revoked := perm.Clone()
	s.mu.Unlock()

	s.publish(actor, events.PermissionRevoked, revoked)
	return true
}

// Update merges patch into the permission with id. Patches cannot re-activate a
// revoked permission. It reports false when the id is unknown.
func (s *Store) Update(ctx context.Context, id string, patch models.PermissionPatch) (models.Permission, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.Permission{}, false
	}
	patch.Apply(&s.permissions[idx])
	updated := s.permissions[idx].Clone()
	s.mu.Unlock()

	s.publish(auditctx.ActorOrSystem(ctx), events.PermissionUpdated, updated)
	return updated, true
}

// Get returns a copy of the permission with id.
func (s *Store) Get(id string) (models.Permission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.permissions[idx].Clone(), true
	}
	return models.Permission{}, false
}

// List returns copies of every permission, active or not, in grant order.
func (s *Store) List() []models.Permission {
	return s.filter(func(models.Permission) bool { return true })
}

// ListByUser returns the permissions granted to userID in grant order.
func (s *Store) ListByUser(userID string) []models.Permission {
	return s.filter(func(p models.Permission) bool { return p.UserID == userID })
}

// ListByAccessPoint returns the permissions referencing accessPointID in grant order.
func (s *Store) ListByAccessPoint(accessPointID string) []models.Permission {
	return s.filter(func(p models.Permission) bool { return p.AccessPointID == accessPointID })
}

// FindActive returns the first permission, in grant order, for the user and access point
// that is active and not expired at now. Schedule and method are not checked here.
func (s *Store) FindActive(userID, accessPointID string, now time.Time) (models.Permission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.permissions {
		p := &s.permissions[i]
		if p.UserID != userID || p.AccessPointID != accessPointID {
			continue
		}
		if p.EffectiveAt(now) {
			return p.Clone(), true
		}
	}
	return models.Permission{}, false
}

// DisplayName returns the most recently granted non-empty user name for userID, revoked
// grants included.
func (s *Store) DisplayName(_ context.Context, userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.permissions) - 1; i >= 0; i-- {
		p := &s.permissions[i]
		if p.UserID == userID && p.UserName != "" {
			return p.UserName, true
		}
	}
	return "", false
}

func (s *Store) filter(keep func(models.Permission) bool) []models.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Permission, 0, len(s.permissions))
	for i := range s.permissions {
		if keep(s.permissions[i]) {
			out = append(out, s.permissions[i].Clone())
		}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i := range s.permissions {
		if s.permissions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publish(actor auditctx.Actor, kind events.Type, perm models.Permission) {
	s.publisher.Publish(events.Event{
		Type:       kind,
		OccurredAt: s.now(),
		Actor:      actor,
		Permission: &perm,
	})
}
