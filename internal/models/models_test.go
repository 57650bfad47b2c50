package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRiskBucketBoundaries(t *testing.T) {
	require.Equal(t, "low", RiskBucket(0))
	require.Equal(t, "low", RiskBucket(29))
	require.Equal(t, "medium", RiskBucket(30))
	require.Equal(t, "medium", RiskBucket(69))
	require.Equal(t, "high", RiskBucket(70))
	require.Equal(t, "high", RiskBucket(100))
}

func TestPermissionCloneIsDeep(t *testing.T) {
	validTo := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	perm := Permission{
		AccessMethods: []string{"rfid"},
		Schedule:      Schedule{Days: []int{1, 2}},
		ValidTo:       &validTo,
		Metadata: map[string]any{
			"badge": "A",
			"tier":  map[string]any{"level": "silver", "zones": []any{"north"}},
		},
	}

	clone := perm.Clone()
	clone.AccessMethods[0] = "pin"
	clone.Schedule.Days[0] = 6
	*clone.ValidTo = time.Time{}
	clone.Metadata["badge"] = "B"
	tier := clone.Metadata["tier"].(map[string]any)
	tier["level"] = "gold"
	tier["zones"].([]any)[0] = "south"

	require.Equal(t, "rfid", perm.AccessMethods[0])
	require.Equal(t, 1, perm.Schedule.Days[0])
	require.Equal(t, validTo, *perm.ValidTo)
	require.Equal(t, "A", perm.Metadata["badge"])
	require.Equal(t, map[string]any{"level": "silver", "zones": []any{"north"}}, perm.Metadata["tier"])
}

func TestPermissionEffectiveAt(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.True(t, Permission{Active: true}.EffectiveAt(now))
	require.True(t, Permission{Active: true, ValidTo: &future}.EffectiveAt(now))
	require.False(t, Permission{Active: true, ValidTo: &past}.EffectiveAt(now))
	require.False(t, Permission{Active: true, ValidTo: &now}.EffectiveAt(now))
	require.False(t, Permission{Active: false}.EffectiveAt(now))
}

func TestPermissionPatchMergesMetadata(t *testing.T) {
	perm := Permission{Metadata: map[string]any{"a": 1}, AccessMethods: []string{"rfid"}}
	reason := "contractor"

	PermissionPatch{Reason: &reason, Metadata: map[string]any{"b": 2}}.Apply(&perm)

	require.Equal(t, "contractor", perm.Reason)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, perm.Metadata)
	require.Equal(t, []string{"rfid"}, perm.AccessMethods)
}

func TestPermissionPatchCopiesNestedMetadata(t *testing.T) {
	nested := map[string]any{"tier": "silver"}
	perm := Permission{}

	PermissionPatch{Metadata: map[string]any{"badge": nested}}.Apply(&perm)
	nested["tier"] = "gold"

	require.Equal(t, map[string]any{"tier": "silver"}, perm.Metadata["badge"])
}

func TestAccessPointAvailable(t *testing.T) {
	require.True(t, AccessPoint{Enabled: true, Status: AccessPointActive}.Available())
	require.False(t, AccessPoint{Enabled: false, Status: AccessPointActive}.Available())
	require.True(t, AccessPoint{Enabled: true, Status: AccessPointMaintenance}.Available())
}

func TestReportPeriodContainsIsInclusive(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	period := ReportPeriod{From: from, To: to}

	require.True(t, period.Contains(from))
	require.True(t, period.Contains(to))
	require.False(t, period.Contains(to.Add(time.Nanosecond)))
	require.False(t, period.Contains(from.Add(-time.Nanosecond)))
}
