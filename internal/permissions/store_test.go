package permissions

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/portcullis/internal/auditctx"
	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
)

func newTestStore(now time.Time, opts ...Option) *Store {
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewStore(opts...)
}

func samplePermission(user, point string) models.Permission {
	return models.Permission{
		UserID:        user,
		UserName:      "Alice",
		AccessPointID: point,
		AccessMethods: []string{"rfid"},
		Schedule:      models.Schedule{Days: []int{1}, StartTime: "08:00", EndTime: "18:00"},
	}
}

func TestGrantAssignsStoreFields(t *testing.T) {
	now := monday(9, 0)
	s := newTestStore(now)

	input := samplePermission("u1", "ap1")
	input.ID = "caller-chosen"
	input.Active = false

	perm := s.Grant(context.Background(), input)

	require.NotEmpty(t, perm.ID)
	require.NotEqual(t, "caller-chosen", perm.ID)
	require.True(t, perm.Active)
	require.Equal(t, now, perm.GrantedAt)
	require.Equal(t, now, perm.ValidFrom)
	require.Equal(t, auditctx.SystemActor, perm.GrantedBy)
}

func TestGrantUsesContextActor(t *testing.T) {
	s := newTestStore(monday(9, 0))
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{Username: "security-desk"})

	perm := s.Grant(ctx, samplePermission("u1", "ap1"))
	require.Equal(t, "security-desk", perm.GrantedBy)
}

func TestRevokeIsOneShot(t *testing.T) {
	s := newTestStore(monday(9, 0))
	perm := s.Grant(context.Background(), samplePermission("u1", "ap1"))

	require.True(t, s.Revoke(context.Background(), perm.ID, "admin"))
	require.False(t, s.Revoke(context.Background(), perm.ID, "admin"))
	require.False(t, s.Revoke(context.Background(), "missing", "admin"))

	got, ok := s.Get(perm.ID)
	require.True(t, ok)
	require.False(t, got.Active)
	require.Equal(t, "admin", got.RevokedBy)
	require.NotNil(t, got.RevokedAt)
}

func TestRevokePublishesOnlyOnChange(t *testing.T) {
	bus := events.NewBus()
	var revoked int
	bus.Subscribe(func(events.Event) { revoked++ }, events.PermissionRevoked)

	s := newTestStore(monday(9, 0), WithPublisher(bus))
	perm := s.Grant(context.Background(), samplePermission("u1", "ap1"))

	s.Revoke(context.Background(), perm.ID, "")
	s.Revoke(context.Background(), perm.ID, "")

	require.Equal(t, 1, revoked)
}

func TestFindActiveReturnsFirstMatchInGrantOrder(t *testing.T) {
	now := monday(9, 0)
	s := newTestStore(now)

	first := samplePermission("u1", "ap1")
	first.AccessMethods = []string{"pin"}
	second := samplePermission("u1", "ap1")
	second.AccessMethods = []string{"rfid"}

	p1 := s.Grant(context.Background(), first)
	s.Grant(context.Background(), second)

	got, ok := s.FindActive("u1", "ap1", now)
	require.True(t, ok)
	require.Equal(t, p1.ID, got.ID)
	require.Equal(t, []string{"pin"}, got.AccessMethods)
}

func TestFindActiveSkipsRevokedAndExpired(t *testing.T) {
	now := monday(9, 0)
	s := newTestStore(now)

	expired := samplePermission("u1", "ap1")
	past := now.Add(-time.Minute)
	expired.ValidTo = &past
	s.Grant(context.Background(), expired)

	revoked := s.Grant(context.Background(), samplePermission("u1", "ap1"))
	s.Revoke(context.Background(), revoked.ID, "")

	_, ok := s.FindActive("u1", "ap1", now)
	require.False(t, ok)

	valid := samplePermission("u1", "ap1")
	future := now.Add(time.Hour)
	valid.ValidTo = &future
	want := s.Grant(context.Background(), valid)

	got, ok := s.FindActive("u1", "ap1", now)
	require.True(t, ok)
	require.Equal(t, want.ID, got.ID)

	_, ok = s.FindActive("u2", "ap1", now)
	require.False(t, ok)
}

func TestUpdateCannotReactivate(t *testing.T) {
	s := newTestStore(monday(9, 0))
	perm := s.Grant(context.Background(), samplePermission("u1", "ap1"))
	require.True(t, s.Revoke(context.Background(), perm.ID, ""))

	updated, ok := s.Update(context.Background(), perm.ID, models.PermissionPatch{AccessMethods: []string{"pin", "rfid"}})
	require.True(t, ok)
	require.False(t, updated.Active)
	require.Equal(t, []string{"pin", "rfid"}, updated.AccessMethods)

	_, ok = s.Update(context.Background(), "missing", models.PermissionPatch{})
	require.False(t, ok)
}

func TestListFilters(t *testing.T) {
	s := newTestStore(monday(9, 0))
	s.Grant(context.Background(), samplePermission("u1", "ap1"))
	s.Grant(context.Background(), samplePermission("u2", "ap1"))
	s.Grant(context.Background(), samplePermission("u1", "ap2"))

	require.Len(t, s.List(), 3)
	require.Len(t, s.ListByUser("u1"), 2)
	require.Len(t, s.ListByAccessPoint("ap1"), 2)
}

func TestStoredPermissionsAreIsolated(t *testing.T) {
	s := newTestStore(monday(9, 0))
	input := samplePermission("u1", "ap1")
	perm := s.Grant(context.Background(), input)

	input.AccessMethods[0] = "pin"
	perm.AccessMethods[0] = "pin"

	got, _ := s.Get(perm.ID)
	require.Equal(t, []string{"rfid"}, got.AccessMethods)
}

func TestStoredMetadataIsolatedAtDepth(t *testing.T) {
	s := newTestStore(monday(9, 0))
	input := samplePermission("u1", "ap1")
	input.Metadata = map[string]any{"badge": map[string]any{"tier": "silver"}}
	perm := s.Grant(context.Background(), input)

	got, ok := s.Get(perm.ID)
	require.True(t, ok)
	got.Metadata["badge"].(map[string]any)["tier"] = "gold"

	found, ok := s.FindActive("u1", "ap1", monday(9, 0))
	require.True(t, ok)
	found.Metadata["badge"].(map[string]any)["tier"] = "bronze"

	again, _ := s.Get(perm.ID)
	require.Equal(t, map[string]any{"tier": "silver"}, again.Metadata["badge"])
}

func TestDisplayNamePrefersLatestGrant(t *testing.T) {
	s := newTestStore(monday(9, 0))
	ctx := context.Background()

	_, ok := s.DisplayName(ctx, "u1")
	require.False(t, ok)

	s.Grant(ctx, samplePermission("u1", "ap1"))
	renamed := samplePermission("u1", "ap2")
	renamed.UserName = "Alice Smith"
	s.Grant(ctx, renamed)
	unnamed := samplePermission("u1", "ap3")
	unnamed.UserName = ""
	s.Grant(ctx, unnamed)

	name, ok := s.DisplayName(ctx, "u1")
	require.True(t, ok)
	require.Equal(t, "Alice Smith", name)
}

func TestConcurrentRevokeSucceedsOnce(t *testing.T) {
	bus := events.NewBus()
	var published atomic.Int64
	bus.Subscribe(func(events.Event) { published.Add(1) }, events.PermissionRevoked)

	s := newTestStore(monday(9, 0), WithPublisher(bus))
	perm := s.Grant(context.Background(), samplePermission("u1", "ap1"))

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Revoke(context.Background(), perm.ID, "admin") {
				wins.Add(1)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Grant(context.Background(), samplePermission("u2", "ap1"))
			s.FindActive("u1", "ap1", monday(9, 0))
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, 1, published.Load())
	require.Len(t, s.ListByUser("u2"), 32)
	_, ok := s.FindActive("u1", "ap1", monday(9, 0))
	require.False(t, ok)
}
