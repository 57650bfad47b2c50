package models

import "time"

// Risk bucket boundaries: low < 30, medium 30..69, high >= 70.
const (
	RiskMediumThreshold = 30
	RiskHighThreshold   = 70
)

// RiskBucket names the bucket a risk score falls in.
func RiskBucket(score int) string {
	switch {
	case score >= RiskHighThreshold:
		return "high"
	case score >= RiskMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// RiskDistribution counts events per risk bucket.
type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Metrics is a derived snapshot over points, permissions and the audit log.
// Maps are freshly allocated per snapshot and must be treated as read-only.
type Metrics struct {
	TotalAccessPoints   int              `json:"totalAccessPoints"`
	ActiveAccessPoints  int              `json:"activeAccessPoints"`
	TotalPermissions    int              `json:"totalPermissions"`
	ActivePermissions   int              `json:"activePermissions"`
	TotalEvents         int              `json:"totalEvents"`
	SuccessfulEvents    int              `json:"successfulEvents"`
	FailedEvents        int              `json:"failedEvents"`
	SuccessRate         float64          `json:"successRate"`
	AverageResponseTime float64          `json:"averageResponseTime"`
	SecurityIncidents   int              `json:"securityIncidents"`
	AnomalyEvents       int              `json:"anomalyEvents"`
	EventsByMethod      map[string]int   `json:"eventsByMethod"`
	EventsByHour        map[int]int      `json:"eventsByHour"`
	EventsByUser        map[string]int   `json:"eventsByUser"`
	EventsByAccessPoint map[string]int   `json:"eventsByAccessPoint"`
	RiskDistribution    RiskDistribution `json:"riskDistribution"`
	ComputedAt          time.Time        `json:"computedAt"`
}
