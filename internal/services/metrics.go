package services

import (
	"time"

	"github.com/charlesng35/portcullis/internal/models"
)

// Recompute derives a metrics snapshot from the current state of the stores. It is pure:
// the same inputs always produce the same output. Hour-of-day buckets use loc, or UTC
// when loc is nil. ComputedAt is left for the caller to set.
func Recompute(points []models.AccessPoint, perms []models.Permission, events []models.AccessEvent, loc *time.Location) models.Metrics {
	if loc == nil {
		loc = time.UTC
	}

	m := models.Metrics{
		TotalAccessPoints:   len(points),
		TotalPermissions:    len(perms),
		TotalEvents:         len(events),
		EventsByMethod:      make(map[string]int),
		EventsByHour:        make(map[int]int),
		EventsByUser:        make(map[string]int),
		EventsByAccessPoint: make(map[string]int),
	}

	for _, p := range points {
		if p.Enabled {
			m.ActiveAccessPoints++
		}
	}
	for _, p := range perms {
		if p.Active {
			m.ActivePermissions++
		}
	}

	var totalDuration float64
	for _, e := range events {
		switch e.Result {
		case models.ResultSuccess:
			m.SuccessfulEvents++
		case models.ResultFailure:
			m.FailedEvents++
		}
		if e.Severity == models.SeverityCritical {
			m.SecurityIncidents++
		}
		if e.IsAnomaly {
			m.AnomalyEvents++
		}
		totalDuration += e.Details.DurationMS

		m.EventsByMethod[e.Method]++
		m.EventsByHour[e.Timestamp.In(loc).Hour()]++
		m.EventsByUser[e.UserID]++
		m.EventsByAccessPoint[e.AccessPointID]++

		switch models.RiskBucket(e.RiskScore) {
		case "high":
			m.RiskDistribution.High++
		case "medium":
			m.RiskDistribution.Medium++
		default:
			m.RiskDistribution.Low++
		}
	}

	if m.TotalEvents > 0 {
		m.SuccessRate = float64(m.SuccessfulEvents) / float64(m.TotalEvents) * 100
	}
	m.AverageResponseTime = totalDuration / float64(max(m.TotalEvents, 1))

	return m
}
