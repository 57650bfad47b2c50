package models

import "time"

// ReportPeriod is an inclusive time range.
type ReportPeriod struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether ts lies within the period, bounds included.
func (p ReportPeriod) Contains(ts time.Time) bool {
	return !ts.Before(p.From) && !ts.After(p.To)
}

// ReportFilters narrows a report to one user and/or access point.
type ReportFilters struct {
	UserID        string `json:"userId,omitempty"`
	AccessPointID string `json:"accessPointId,omitempty"`
}

// ReportSummary aggregates the events a report covers.
type ReportSummary struct {
	TotalEvents       int `json:"totalEvents"`
	SuccessfulEvents  int `json:"successfulEvents"`
	FailedEvents      int `json:"failedEvents"`
	SecurityIncidents int `json:"securityIncidents"`
	AnomalyEvents     int `json:"anomalyEvents"`
}

// EventSummary is the compact event projection used when details are not requested.
type EventSummary struct {
	ID              string       `json:"id"`
	UserName        string       `json:"userName"`
	AccessPointName string       `json:"accessPointName"`
	Method          string       `json:"method"`
	Action          AccessAction `json:"action"`
	Timestamp       time.Time    `json:"timestamp"`
	Result          AccessResult `json:"result"`
	Severity        Severity     `json:"severity"`
}

// Summarize projects an event into its compact form.
func Summarize(e AccessEvent) EventSummary {
	return EventSummary{
		ID:              e.ID,
		UserName:        e.UserName,
		AccessPointName: e.AccessPointName,
		Method:          e.Method,
		Action:          e.Action,
		Timestamp:       e.Timestamp,
		Result:          e.Result,
		Severity:        e.Severity,
	}
}

// Report is an audit report over a period. Events holds []AccessEvent when details
// were requested and []EventSummary otherwise.
type Report struct {
	Period      ReportPeriod  `json:"period"`
	Filters     ReportFilters `json:"filters"`
	Summary     ReportSummary `json:"summary"`
	Events      any           `json:"events"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
