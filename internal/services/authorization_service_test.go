package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/models"
)

func TestNewAuthorizationServiceRequiresCollaborators(t *testing.T) {
	_, err := NewAuthorizationService(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestAttemptAccessDeniesMissingPoint(t *testing.T) {
	f := newEngineFixture(t)
	before := f.log.Len()

	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID:        "u1",
		AccessPointID: "does-not-exist",
		Method:        credentials.MethodRFID,
		Credentials:   map[string]any{"cardId": "12345678"},
	})

	require.False(t, decision.Granted)
	require.Equal(t, ReasonPointUnavailable, decision.Reason)
	require.Equal(t, before+1, f.log.Len())

	event, ok := f.log.Get(decision.EventID)
	require.True(t, ok)
	require.Equal(t, models.SeverityMedium, event.Severity)
	require.Equal(t, 50, event.RiskScore)
	require.False(t, event.IsAnomaly)
	require.Equal(t, "Unknown", event.AccessPointName)
	require.Equal(t, "Unknown", event.UserName)
	require.Equal(t, models.ActionDeny, event.Action)
	require.Equal(t, models.ResultFailure, event.Result)
}

func TestAttemptAccessDeniesDisabledPoint(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Server room", false)
	f.grant("u1", point.ID, credentials.MethodRFID)
	before := f.log.Len()

	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID:        "u1",
		AccessPointID: point.ID,
		Method:        credentials.MethodRFID,
		Credentials:   map[string]any{"cardId": "12345678"},
	})

	require.False(t, decision.Granted)
	require.Equal(t, ReasonPointUnavailable, decision.Reason)
	require.Equal(t, before+1, f.log.Len())

	event, _ := f.log.Get(decision.EventID)
	require.Equal(t, "Server room", event.AccessPointName)
}

func TestAttemptAccessDecisionTable(t *testing.T) {
	cases := []struct {
		name      string
		at        time.Time
		methods   []string
		method    string
		payload   map[string]any
		granted   bool
		reason    string
		severity  models.Severity
		anomaly   bool
		riskScore int
	}{
		{
			name: "granted", at: testNow,
			methods: []string{"rfid"}, method: "rfid", payload: map[string]any{"cardId": "12345678"},
			granted: true, reason: ReasonGranted, severity: models.SeverityLow, riskScore: 10,
		},
		{
			name: "outside schedule", at: testNow.Add(10 * time.Hour),
			methods: []string{"rfid"}, method: "rfid", payload: map[string]any{"cardId": "12345678"},
			reason: ReasonOutsideSchedule, severity: models.SeverityMedium, riskScore: 30,
		},
		{
			name: "method not allowed", at: testNow,
			methods: []string{"pin"}, method: "rfid", payload: map[string]any{"cardId": "12345678"},
			reason: ReasonMethodNotAllowed, severity: models.SeverityHigh, anomaly: true, riskScore: 90,
		},
		{
			name: "bad credential", at: testNow,
			methods: []string{"rfid"}, method: "rfid", payload: map[string]any{"cardId": "123"},
			reason: credentials.ReasonInvalidRFID, severity: models.SeverityHigh, anomaly: true, riskScore: 90,
		},
		{
			name: "unknown method", at: testNow,
			methods: []string{"retina"}, method: "retina", payload: map[string]any{},
			reason: credentials.ReasonUnknownMethod, severity: models.SeverityHigh, anomaly: true, riskScore: 90,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t)
			point := f.addPoint("Lobby", true)
			f.grant("u1", point.ID, tc.methods...)
			f.setNow(tc.at)

			decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
				UserID:        "u1",
				AccessPointID: point.ID,
				Method:        tc.method,
				Credentials:   tc.payload,
				IPAddress:     "192.0.2.10",
				UserAgent:     "reader/1.0",
				SessionID:     "s-1",
			})

			require.Equal(t, tc.granted, decision.Granted)
			require.Equal(t, tc.reason, decision.Reason)
			require.Equal(t, tc.severity, decision.Severity)
			require.Equal(t, tc.riskScore, decision.RiskScore)

			event, ok := f.log.Get(decision.EventID)
			require.True(t, ok)
			require.Equal(t, tc.severity, event.Severity)
			require.Equal(t, tc.anomaly, event.IsAnomaly)
			require.Equal(t, tc.riskScore, event.RiskScore)
			require.Equal(t, tc.reason, event.Details.Reason)
			require.Equal(t, "Alice", event.UserName)
			require.Equal(t, "Lobby", event.AccessPointName)
			require.Equal(t, "192.0.2.10", event.IPAddress)
			require.Equal(t, "reader/1.0", event.UserAgent)
			require.Equal(t, "s-1", event.SessionID)
			require.Equal(t, tc.at, event.Timestamp)
			if tc.granted {
				require.Equal(t, models.ActionGrant, event.Action)
				require.Equal(t, models.ResultSuccess, event.Result)
			} else {
				require.Equal(t, models.ActionDeny, event.Action)
				require.Equal(t, models.ResultFailure, event.Result)
			}
		})
	}
}

func TestAttemptAccessWithoutPermission(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Lobby", true)

	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "stranger", AccessPointID: point.ID, Method: "rfid",
		Credentials: map[string]any{"cardId": "12345678"},
	})

	require.False(t, decision.Granted)
	require.Equal(t, ReasonNoPermission, decision.Reason)
	require.Equal(t, models.SeverityHigh, decision.Severity)
	require.Equal(t, 80, decision.RiskScore)

	event, _ := f.log.Get(decision.EventID)
	require.True(t, event.IsAnomaly)
	require.Equal(t, "Unknown", event.UserName)
	require.Equal(t, CodeNoPermission, event.Details.ErrorCode)
}

func TestAttemptAccessAfterRevokeIsDenied(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Lobby", true)
	perm := f.grant("u1", point.ID, "rfid")
	require.True(t, f.perms.Revoke(context.Background(), perm.ID, "admin"))

	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "u1", AccessPointID: point.ID, Method: "rfid",
		Credentials: map[string]any{"cardId": "12345678"},
	})
	require.Equal(t, ReasonNoPermission, decision.Reason)
}

func TestFirstMatchingPermissionWins(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Lobby", true)
	f.grant("u1", point.ID, "pin")
	f.grant("u1", point.ID, "rfid")

	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "u1", AccessPointID: point.ID, Method: "rfid",
		Credentials: map[string]any{"cardId": "12345678"},
	})
	require.False(t, decision.Granted)
	require.Equal(t, ReasonMethodNotAllowed, decision.Reason)
}

type staticDirectory map[string]string

func (d staticDirectory) DisplayName(_ context.Context, id string) (string, bool) {
	name, ok := d[id]
	return name, ok
}

func TestUserDirectoryNamesUnknownUsers(t *testing.T) {
	f := newEngineFixture(t)
	engine, err := NewAuthorizationService(f.points, f.perms, credentials.NewDefaultRegistry(), f.log,
		WithAuthorizationClock(func() time.Time { return testNow }),
		WithUserDirectory(staticDirectory{"u9": "Visitor Nine"}))
	require.NoError(t, err)

	decision := engine.AttemptAccess(context.Background(), AccessRequest{UserID: "u9", AccessPointID: "none", Method: "rfid"})
	event, _ := f.log.Get(decision.EventID)
	require.Equal(t, "Visitor Nine", event.UserName)
}

func TestExactlyOneAuditRecordPerAttempt(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Lobby", true)
	f.grant("u1", point.ID, "rfid", "pin")

	requests := []AccessRequest{
		{UserID: "u1", AccessPointID: point.ID, Method: "rfid", Credentials: map[string]any{"cardId": "12345678"}},
		{UserID: "u1", AccessPointID: point.ID, Method: "pin", Credentials: map[string]any{"pin": "12"}},
		{UserID: "u2", AccessPointID: point.ID, Method: "rfid"},
		{UserID: "u1", AccessPointID: "missing", Method: "rfid"},
		{UserID: "u1", AccessPointID: point.ID, Method: "otp"},
	}
	for _, req := range requests {
		before := f.log.Len()
		f.engine.AttemptAccess(context.Background(), req)
		require.Equal(t, before+1, f.log.Len())
	}
}

func TestEndToEndRFIDGrantUpdatesMetrics(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Main door", true)
	f.grant("u1", point.ID, "rfid")

	before := f.metrics.Snapshot()
	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "u1", AccessPointID: point.ID, Method: "rfid",
		Credentials: map[string]any{"cardId": "12345678"},
	})
	after := f.metrics.Snapshot()

	require.True(t, decision.Granted)
	require.Equal(t, before.TotalEvents+1, after.TotalEvents)
	require.Equal(t, before.SuccessfulEvents+1, after.SuccessfulEvents)
	require.Equal(t, before.FailedEvents, after.FailedEvents)
	require.Equal(t, before.EventsByMethod["rfid"]+1, after.EventsByMethod["rfid"])
}

func TestEndToEndRFIDShortCardIsAnomalous(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Main door", true)
	f.grant("u1", point.ID, "rfid")

	before := f.metrics.Snapshot()
	decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "u1", AccessPointID: point.ID, Method: "rfid",
		Credentials: map[string]any{"cardId": "123"},
	})
	after := f.metrics.Snapshot()

	require.False(t, decision.Granted)
	require.Equal(t, "Invalid RFID card", decision.Reason)

	event, ok := f.log.Get(decision.EventID)
	require.True(t, ok)
	require.Equal(t, models.SeverityHigh, event.Severity)
	require.True(t, event.IsAnomaly)
	require.Equal(t, 90, event.RiskScore)

	require.Equal(t, before.FailedEvents+1, after.FailedEvents)
	require.Equal(t, before.AnomalyEvents+1, after.AnomalyEvents)
	require.Equal(t, before.RiskDistribution.High+1, after.RiskDistribution.High)
}

func TestAttemptAccessAppendsOnceUnderConcurrentCallers(t *testing.T) {
	f := newEngineFixture(t)
	door := f.addPoint("Main door", true)
	lab := f.addPoint("Lab", true)
	f.grant("u1", door.ID, credentials.MethodRFID)
	before := f.log.Len()

	const attempts = 200
	const churn = 20

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision := f.engine.AttemptAccess(context.Background(), AccessRequest{
				UserID:        "u1",
				AccessPointID: door.ID,
				Method:        credentials.MethodRFID,
				Credentials:   map[string]any{"cardId": "12345678"},
			})
			if decision.Granted {
				granted.Add(1)
			}
		}()
	}
	for i := 0; i < churn; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			perm := f.grant(fmt.Sprintf("visitor-%d", n), lab.ID, credentials.MethodPIN)
			f.perms.Revoke(context.Background(), perm.ID, "")
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, attempts, granted.Load())
	// One record per attempt plus one per grant and one per revoke.
	require.Equal(t, before+attempts+2*churn, f.log.Len())
	decided := 0
	for _, event := range f.log.ByAccessPoint(door.ID) {
		if event.Method == credentials.MethodRFID {
			decided++
		}
	}
	require.Equal(t, attempts, decided)
	require.Equal(t, f.log.Len(), f.metrics.Snapshot().TotalEvents)
}

func TestMethodLabelFollowsRegistry(t *testing.T) {
	registry := credentials.NewDefaultRegistry()
	registry.MustRegister(credentials.NewValidator("palm_vein", func(map[string]any) credentials.Result {
		return credentials.Result{OK: true}
	}))
	f := newEngineFixture(t)
	engine, err := NewAuthorizationService(f.points, f.perms, registry, f.log)
	require.NoError(t, err)

	require.Equal(t, "palm_vein", engine.methodLabel("palm_vein"))
	require.Equal(t, credentials.MethodRFID, engine.methodLabel(credentials.MethodRFID))
	require.Equal(t, "other", engine.methodLabel("retina"))
}

func TestScheduleWithoutTimezoneUsesClockLocation(t *testing.T) {
	f := newEngineFixture(t)
	point := f.addPoint("Main door", true)
	f.grant("u1", point.ID, credentials.MethodRFID)

	// 10:00 UTC on Monday is 19:00 at UTC+9, after the 08:00-18:00 window.
	local := testNow.In(time.FixedZone("UTC+9", 9*60*60))
	engine, err := NewAuthorizationService(f.points, f.perms, credentials.NewDefaultRegistry(), f.log,
		WithAuthorizationClock(func() time.Time { return local }))
	require.NoError(t, err)

	decision := engine.AttemptAccess(context.Background(), AccessRequest{
		UserID: "u1", AccessPointID: point.ID, Method: credentials.MethodRFID,
		Credentials: map[string]any{"cardId": "12345678"},
	})
	require.False(t, decision.Granted)
	require.Equal(t, ReasonOutsideSchedule, decision.Reason)
}
