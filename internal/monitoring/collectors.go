package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/charlesng35/portcullis/internal/models"
)

// SnapshotSource exposes the latest aggregated metrics.
type SnapshotSource interface {
	Snapshot() models.Metrics
}

// snapshotCollector republishes the metrics snapshot as Prometheus gauges on every scrape.
type snapshotCollector struct {
	source SnapshotSource

	accessPoints       *prometheus.Desc
	activeAccessPoints *prometheus.Desc
	permissions        *prometheus.Desc
	activePermissions  *prometheus.Desc
	events             *prometheus.Desc
	successfulEvents   *prometheus.Desc
	failedEvents       *prometheus.Desc
	successRate        *prometheus.Desc
	averageResponse    *prometheus.Desc
	securityIncidents  *prometheus.Desc
	anomalyEvents      *prometheus.Desc
	eventsByMethod     *prometheus.Desc
	riskEvents         *prometheus.Desc
}

func newSnapshotCollector(namespace string, source SnapshotSource) *snapshotCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "snapshot", name), help, labels, nil)
	}

	return &snapshotCollector{
		source:             source,
		accessPoints:       desc("access_points", "Registered access points"),
		activeAccessPoints: desc("access_points_active", "Enabled access points"),
		permissions:        desc("permissions", "Stored permissions"),
		activePermissions:  desc("permissions_active", "Permissions that are active and unexpired"),
		events:             desc("events", "Audit events currently retained"),
		successfulEvents:   desc("events_successful", "Retained audit events with a successful result"),
		failedEvents:       desc("events_failed", "Retained audit events with a failed result"),
		successRate:        desc("success_rate_percent", "Share of successful retained events"),
		averageResponse:    desc("average_response_ms", "Mean decision duration across retained events"),
		securityIncidents:  desc("security_incidents", "Retained events with critical severity"),
		anomalyEvents:      desc("anomaly_events", "Retained events flagged as anomalies"),
		eventsByMethod:     desc("events_by_method", "Retained audit events per access method", "method"),
		riskEvents:         desc("risk_events", "Retained audit events per risk bucket", "bucket"),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.accessPoints, c.activeAccessPoints, c.permissions, c.activePermissions,
		c.events, c.successfulEvents, c.failedEvents, c.successRate, c.averageResponse,
		c.securityIncidents, c.anomalyEvents, c.eventsByMethod, c.riskEvents,
	} {
		ch <- d
	}
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	s := c.source.Snapshot()

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.accessPoints, float64(s.TotalAccessPoints))
	gauge(c.activeAccessPoints, float64(s.ActiveAccessPoints))
	gauge(c.permissions, float64(s.TotalPermissions))
	gauge(c.activePermissions, float64(s.ActivePermissions))
	gauge(c.events, float64(s.TotalEvents))
	gauge(c.successfulEvents, float64(s.SuccessfulEvents))
	gauge(c.failedEvents, float64(s.FailedEvents))
	gauge(c.successRate, s.SuccessRate)
	gauge(c.averageResponse, s.AverageResponseTime)
	gauge(c.securityIncidents, float64(s.SecurityIncidents))
	gauge(c.anomalyEvents, float64(s.AnomalyEvents))

	for method, count := range s.EventsByMethod {
		gauge(c.eventsByMethod, float64(count), method)
	}
	gauge(c.riskEvents, float64(s.RiskDistribution.Low), "low")
	gauge(c.riskEvents, float64(s.RiskDistribution.Medium), "medium")
	gauge(c.riskEvents, float64(s.RiskDistribution.High), "high")
}
