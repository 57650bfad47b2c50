package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/portcullis/internal/monitoring"
)

const defaultArchiveTimeout = 2 * time.Second

// Archive returns a readiness probe that pings the audit archive database.
func Archive(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("archive", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "archive not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("archive", err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultArchiveTimeout))
		defer cancel()

		return monitoring.ResultFromError("archive", sqlDB.PingContext(probeCtx), time.Since(start))
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
