package audit

import (
	"fmt"

	"github.com/charlesng35/portcullis/internal/events"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/metrics"
)

const unknownName = "Unknown"

// PointLookup resolves access point names for administrative records.
type PointLookup interface {
	Get(id string) (models.AccessPoint, bool)
}

// Appender is the part of Log the recorder writes to.
type Appender interface {
	Append(event models.AccessEvent) string
}

// Recorder turns administrative domain events into audit records.
type Recorder struct {
	log    Appender
	points PointLookup
}

// NewRecorder constructs a Recorder. points may be nil, in which case permission
// records carry an "Unknown" access point name.
func NewRecorder(log Appender, points PointLookup) *Recorder {
	return &Recorder{log: log, points: points}
}

// Subscribe attaches the recorder to every administrative event on bus.
func (r *Recorder) Subscribe(bus *events.Bus) {
	bus.Subscribe(r.Handle,
		events.PermissionGranted,
		events.PermissionUpdated,
		events.PermissionRevoked,
		events.AccessPointCreated,
		events.AccessPointUpdated,
		events.AccessPointDeleted,
	)
}

// Handle appends the audit record for evt. Events it does not understand are ignored.
func (r *Recorder) Handle(evt events.Event) {
	record, ok := r.build(evt)
	if !ok {
		return
	}
	metrics.AdminChanges.WithLabelValues(string(evt.Type)).Inc()
	r.log.Append(record)
}

func (r *Recorder) build(evt events.Event) (models.AccessEvent, bool) {
	record := models.AccessEvent{
		Method:    models.MethodAdmin,
		Timestamp: evt.OccurredAt,
		Result:    models.ResultSuccess,
		IPAddress: evt.Actor.IPAddress,
		UserAgent: evt.Actor.UserAgent,
		SessionID: evt.Actor.SessionID,
		RiskScore: 0,
		Details: models.EventDetails{
			Actor:  evt.Actor.Label(),
			Change: string(evt.Type),
		},
	}

	switch evt.Type {
	case events.PermissionGranted, events.PermissionUpdated, events.PermissionRevoked:
		perm := evt.Permission
		if perm == nil {
			return models.AccessEvent{}, false
		}
		record.UserID = perm.UserID
		record.UserName = nameOrUnknown(perm.UserName)
		record.AccessPointID = perm.AccessPointID
		record.AccessPointName = r.pointName(perm.AccessPointID)

		switch evt.Type {
		case events.PermissionGranted:
			record.Action = models.ActionGrant
			record.Severity = models.SeverityMedium
			record.Details.Reason = fmt.Sprintf("Permission granted by %s", perm.GrantedBy)
		case events.PermissionRevoked:
			record.Action = models.ActionDeny
			record.Severity = models.SeverityMedium
			record.Details.Reason = fmt.Sprintf("Permission revoked by %s", nameOrUnknown(perm.RevokedBy))
		default:
			record.Action = models.ActionGrant
			record.Severity = models.SeverityLow
			record.Details.Reason = "Permission updated"
		}

	case events.AccessPointCreated, events.AccessPointUpdated, events.AccessPointDeleted:
		point := evt.AccessPoint
		if point == nil {
			return models.AccessEvent{}, false
		}
		record.UserID = evt.Actor.UserID
		record.UserName = evt.Actor.Label()
		record.AccessPointID = point.ID
		record.AccessPointName = nameOrUnknown(point.Name)
		record.Severity = models.SeverityLow

		switch evt.Type {
		case events.AccessPointCreated:
			record.Action = models.ActionGrant
			record.Details.Reason = "Access point created"
		case events.AccessPointUpdated:
			record.Action = models.ActionGrant
			record.Details.Reason = "Access point updated"
		default:
			record.Action = models.ActionDeny
			record.Details.Reason = "Access point deleted"
		}

	default:
		return models.AccessEvent{}, false
	}

	return record, true
}

func (r *Recorder) pointName(id string) string {
	if r.points == nil {
		return unknownName
	}
	if point, ok := r.points.Get(id); ok {
		return nameOrUnknown(point.Name)
	}
	return unknownName
}

func nameOrUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}
