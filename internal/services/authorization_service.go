package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/internal/permissions"
	"github.com/charlesng35/portcullis/pkg/logger"
	"github.com/charlesng35/portcullis/pkg/metrics"
)

// Denial and grant reasons surfaced to callers and stored on audit events.
const (
	ReasonPointUnavailable = "Access point not available"
	ReasonNoPermission     = "No permission for this access point"
	ReasonOutsideSchedule  = "Access not allowed at this time"
	ReasonMethodNotAllowed = "Access method not allowed"
	ReasonGranted          = "Access granted"
)

// Error codes stored in audit event details.
const (
	CodePointUnavailable  = "ACCESS_POINT_UNAVAILABLE"
	CodeNoPermission      = "NO_PERMISSION"
	CodeOutsideSchedule   = "OUTSIDE_SCHEDULE"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
)

// AccessPointLookup resolves access points by id.
type AccessPointLookup interface {
	Get(id string) (models.AccessPoint, bool)
}

// PermissionFinder locates the governing permission for a user at an access point.
type PermissionFinder interface {
	FindActive(userID, accessPointID string, now time.Time) (models.Permission, bool)
}

// CredentialValidator checks a credential payload for an access method.
type CredentialValidator interface {
	Validate(method string, payload map[string]any) credentials.Result
	Supports(method string) bool
}

// AuditAppender stores access events.
type AuditAppender interface {
	Append(event models.AccessEvent) string
}

// UserDirectory resolves display names for users without a permission on record.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, bool)
}

// AccessRequest is one attempt to pass an access point.
type AccessRequest struct {
	UserID        string
	AccessPointID string
	Method        string
	Credentials   map[string]any
	IPAddress     string
	UserAgent     string
	SessionID     string
}

// Decision is the outcome of an access attempt.
type Decision struct {
	Granted   bool            `json:"success"`
	Reason    string          `json:"reason,omitempty"`
	EventID   string          `json:"eventId"`
	Severity  models.Severity `json:"severity"`
	RiskScore int             `json:"riskScore"`
}

type outcome struct {
	granted   bool
	reason    string
	code      string
	severity  models.Severity
	anomaly   bool
	riskScore int
}

var (
	outcomePointUnavailable = outcome{reason: ReasonPointUnavailable, code: CodePointUnavailable, severity: models.SeverityMedium, riskScore: 50}
	outcomeNoPermission     = outcome{reason: ReasonNoPermission, code: CodeNoPermission, severity: models.SeverityHigh, anomaly: true, riskScore: 80}
	outcomeOutsideSchedule  = outcome{reason: ReasonOutsideSchedule, code: CodeOutsideSchedule, severity: models.SeverityMedium, riskScore: 30}
	outcomeMethodNotAllowed = outcome{reason: ReasonMethodNotAllowed, code: CodeMethodNotAllowed, severity: models.SeverityHigh, anomaly: true, riskScore: 90}
	outcomeGranted          = outcome{granted: true, reason: ReasonGranted, severity: models.SeverityLow, riskScore: 10}
)

func invalidCredentials(reason string) outcome {
	return outcome{reason: reason, code: CodeInvalidCredential, severity: models.SeverityHigh, anomaly: true, riskScore: 90}
}

// AuthorizationOption customises an AuthorizationService.
type AuthorizationOption func(*AuthorizationService)

// WithAuthorizationClock injects a custom clock, primarily for testing.
func WithAuthorizationClock(clock func() time.Time) AuthorizationOption {
	return func(s *AuthorizationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithUserDirectory supplies display names for users without a permission.
func WithUserDirectory(directory UserDirectory) AuthorizationOption {
	return func(s *AuthorizationService) {
		s.directory = directory
	}
}

// WithScheduleCheck overrides the schedule predicate.
func WithScheduleCheck(check func(models.Schedule, time.Time) bool) AuthorizationOption {
	return func(s *AuthorizationService) {
		if check != nil {
			s.withinSchedule = check
		}
	}
}

// AuthorizationService decides access attempts and records exactly one audit event
// for each decision, granted or denied.
type AuthorizationService struct {
	points      AccessPointLookup
	permissions PermissionFinder
	credentials CredentialValidator
	audit       AuditAppender
	directory   UserDirectory

	withinSchedule func(models.Schedule, time.Time) bool
	now            func() time.Time
	log            *zap.Logger
}

// NewAuthorizationService wires the engine to its collaborators.
func NewAuthorizationService(points AccessPointLookup, perms PermissionFinder, creds CredentialValidator, audit AuditAppender, opts ...AuthorizationOption) (*AuthorizationService, error) {
	if points == nil {
		return nil, errors.New("authorization service: access points are required")
	}
	if perms == nil {
		return nil, errors.New("authorization service: permissions are required")
	}
	if creds == nil {
		return nil, errors.New("authorization service: credential validator is required")
	}
	if audit == nil {
		return nil, errors.New("authorization service: audit log is required")
	}

	svc := &AuthorizationService{
		points:         points,
		permissions:    perms,
		credentials:    creds,
		audit:          audit,
		withinSchedule: permissions.IsWithinSchedule,
		now:            time.Now,
		log:            logger.WithModule("authorization"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AttemptAccess evaluates req and records the decision. Checks run in a fixed order and
// the first failing check determines the outcome:
//
//  1. the access point exists and is enabled
//  2. an active, unexpired permission exists for the user and point
//  3. the current time is within the permission's schedule
//  4. the method is allowed by the permission
//  5. the credential payload passes the method's validator
func (s *AuthorizationService) AttemptAccess(ctx context.Context, req AccessRequest) Decision {
	ctx = ensureContext(ctx)
	start := s.now()

	req.UserID = strings.TrimSpace(req.UserID)
	req.AccessPointID = strings.TrimSpace(req.AccessPointID)
	req.Method = strings.TrimSpace(req.Method)

	point, pointFound := s.points.Get(req.AccessPointID)
	perm, permFound := models.Permission{}, false
	result := outcomeGranted

	switch {
	case !pointFound || !point.Available():
		result = outcomePointUnavailable
	default:
		perm, permFound = s.permissions.FindActive(req.UserID, req.AccessPointID, start)
		switch {
		case !permFound:
			result = outcomeNoPermission
		case !s.withinSchedule(perm.Schedule, start):
			result = outcomeOutsideSchedule
		case !perm.AllowsMethod(req.Method):
			result = outcomeMethodNotAllowed
		default:
			if check := s.credentials.Validate(req.Method, req.Credentials); !check.OK {
				result = invalidCredentials(check.Reason)
			}
		}
	}

	elapsed := s.now().Sub(start)

	event := models.AccessEvent{
		UserID:          req.UserID,
		UserName:        s.userName(ctx, req.UserID, perm, permFound),
		AccessPointID:   req.AccessPointID,
		AccessPointName: unknownName,
		Method:          req.Method,
		Action:          models.ActionDeny,
		Timestamp:       start,
		Result:          models.ResultFailure,
		Details: models.EventDetails{
			Reason:     result.reason,
			ErrorCode:  result.code,
			DurationMS: durationMillis(elapsed),
		},
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		SessionID: req.SessionID,
		Severity:  result.severity,
		IsAnomaly: result.anomaly,
		RiskScore: result.riskScore,
	}
	if pointFound {
		event.AccessPointName = nameOrUnknown(point.Name)
	}
	if result.granted {
		event.Action = models.ActionGrant
		event.Result = models.ResultSuccess
	}

	eventID := s.audit.Append(event)

	metrics.AccessDecisions.WithLabelValues(string(event.Action), s.methodLabel(req.Method)).Inc()
	metrics.AccessDecisionDuration.Observe(elapsed.Seconds())

	if result.granted {
		s.log.Debug("access granted",
			zap.String("event_id", eventID),
			zap.String("user_id", req.UserID),
			zap.String("access_point_id", req.AccessPointID),
			zap.String("method", req.Method),
		)
	} else {
		s.log.Warn("access denied",
			zap.String("event_id", eventID),
			zap.String("user_id", req.UserID),
			zap.String("access_point_id", req.AccessPointID),
			zap.String("method", req.Method),
			zap.String("reason", result.reason),
			zap.Int("risk_score", result.riskScore),
		)
	}

	return Decision{
		Granted:   result.granted,
		Reason:    result.reason,
		EventID:   eventID,
		Severity:  result.severity,
		RiskScore: result.riskScore,
	}
}

func (s *AuthorizationService) userName(ctx context.Context, userID string, perm models.Permission, found bool) string {
	if found && perm.UserName != "" {
		return perm.UserName
	}
	if s.directory != nil && userID != "" {
		if name, ok := s.directory.DisplayName(ctx, userID); ok && name != "" {
			return name
		}
	}
	return unknownName
}

// methodLabel bounds metric label cardinality to the registered methods.
func (s *AuthorizationService) methodLabel(method string) string {
	if s.credentials.Supports(method) {
		return method
	}
	return "other"
}
