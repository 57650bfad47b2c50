package models

import "time"

// AccessAction is what happened at the access point.
type AccessAction string

const (
	ActionGrant   AccessAction = "grant"
	ActionDeny    AccessAction = "deny"
	ActionTimeout AccessAction = "timeout"
	ActionError   AccessAction = "error"
)

// AccessResult is the outcome recorded for an event.
type AccessResult string

const (
	ResultSuccess AccessResult = "success"
	ResultFailure AccessResult = "failure"
	ResultPartial AccessResult = "partial"
)

// Severity ranks how much attention an event deserves.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// MethodAdmin tags audit events produced by administrative changes rather than attempts.
const MethodAdmin = "admin"

// EventDetails holds optional context attached to an access event.
type EventDetails struct {
	Reason    string `json:"reason,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	// DurationMS is the decision latency in milliseconds.
	DurationMS float64 `json:"duration,omitempty"`
	Actor      string  `json:"actor,omitempty"`
	Change     string  `json:"change,omitempty"`
}

// AccessEvent is one immutable audit record.
type AccessEvent struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	UserName        string       `json:"userName"`
	AccessPointID   string       `json:"accessPointId"`
	AccessPointName string       `json:"accessPointName"`
	Method          string       `json:"method"`
	Action          AccessAction `json:"action"`
	Timestamp       time.Time    `json:"timestamp"`
	Result          AccessResult `json:"result"`
	Details         EventDetails `json:"details"`
	IPAddress       string       `json:"ipAddress,omitempty"`
	UserAgent       string       `json:"userAgent,omitempty"`
	SessionID       string       `json:"sessionId,omitempty"`
	Severity        Severity     `json:"severity"`
	IsAnomaly       bool         `json:"isAnomaly"`
	RiskScore       int          `json:"riskScore"`
}

// Successful reports whether the event records a successful grant.
func (e AccessEvent) Successful() bool {
	return e.Result == ResultSuccess
}
