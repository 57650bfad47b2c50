package services

import (
	"context"
	"time"
)

const unknownName = "Unknown"

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func nameOrUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
