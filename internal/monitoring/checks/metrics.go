package checks

import (
	"context"
	"time"

	"github.com/charlesng35/portcullis/internal/monitoring"
)

const defaultSnapshotMaxAge = 10 * time.Minute

// MetricsFreshness degrades when the metrics snapshot has not been recomputed within maxAge,
// which means neither events nor the maintenance refresh have run.
func MetricsFreshness(source monitoring.SnapshotSource, maxAge time.Duration, now func() time.Time) monitoring.Check {
	maxAge = chooseTimeout(maxAge, defaultSnapshotMaxAge)
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("metrics", func(context.Context) monitoring.ProbeResult {
		if source == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "metrics not configured"}
		}

		computed := source.Snapshot().ComputedAt
		if computed.IsZero() {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "snapshot pending first computation"}
		}
		if age := now().Sub(computed); age > maxAge {
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "stale snapshot computed " + computed.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
