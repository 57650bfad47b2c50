package models

import (
	"slices"
	"time"
)

// Schedule is a weekly time window. Days use 0=Sunday..6=Saturday and times are "HH:MM".
type Schedule struct {
	Days      []int  `json:"days" mapstructure:"days" validate:"required,min=1,dive,weekday"`
	StartTime string `json:"startTime" mapstructure:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"endTime" mapstructure:"end_time" validate:"required,hhmm"`
	Timezone  string `json:"timezone,omitempty" mapstructure:"timezone" validate:"omitempty,timezone"`
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	s.Days = slices.Clone(s.Days)
	return s
}

// Permission grants a user access to one access point using certain methods within a schedule.
type Permission struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	UserName      string         `json:"userName,omitempty"`
	AccessPointID string         `json:"accessPointId"`
	AccessMethods []string       `json:"accessMethods"`
	Schedule      Schedule       `json:"schedule"`
	ValidFrom     time.Time      `json:"validFrom"`
	ValidTo       *time.Time     `json:"validTo,omitempty"`
	Active        bool           `json:"active"`
	GrantedBy     string         `json:"grantedBy"`
	GrantedAt     time.Time      `json:"grantedAt"`
	RevokedBy     string         `json:"revokedBy,omitempty"`
	RevokedAt     *time.Time     `json:"revokedAt,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AllowsMethod reports whether method is listed on the permission.
func (p Permission) AllowsMethod(method string) bool {
	return slices.Contains(p.AccessMethods, method)
}

// EffectiveAt reports whether the permission is active and not yet expired at now.
// A nil ValidTo never expires. ValidFrom is informational.
func (p Permission) EffectiveAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ValidTo == nil || p.ValidTo.After(now)
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p Permission) Clone() Permission {
	p.AccessMethods = slices.Clone(p.AccessMethods)
	p.Schedule = p.Schedule.Clone()
	if p.ValidTo != nil {
		v := *p.ValidTo
		p.ValidTo = &v
	}
	if p.RevokedAt != nil {
		v := *p.RevokedAt
		p.RevokedAt = &v
	}
	if p.Metadata != nil {
		p.Metadata = cloneMetadata(p.Metadata)
	}
	return p
}

func cloneMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes produced by JSON and YAML decoding.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMetadata(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}

// PermissionPatch lists mutable permission fields. Activation state is not patchable.
type PermissionPatch struct {
	UserName      *string        `json:"userName,omitempty"`
	AccessMethods []string       `json:"accessMethods,omitempty" validate:"omitempty,min=1,dive,oneof=qr_code rfid fingerprint face_recognition pin otp"`
	Schedule      *Schedule      `json:"schedule,omitempty"`
	ValidFrom     *time.Time     `json:"validFrom,omitempty"`
	ValidTo       *time.Time     `json:"validTo,omitempty"`
	Reason        *string        `json:"reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Apply merges the patch into perm. Metadata keys are merged, not replaced.
func (p PermissionPatch) Apply(perm *Permission) {
	if p.UserName != nil {
		perm.UserName = *p.UserName
	}
	if p.AccessMethods != nil {
		perm.AccessMethods = slices.Clone(p.AccessMethods)
	}
	if p.Schedule != nil {
		perm.Schedule = p.Schedule.Clone()
	}
	if p.ValidFrom != nil {
		perm.ValidFrom = *p.ValidFrom
	}
	if p.ValidTo != nil {
		v := *p.ValidTo
		perm.ValidTo = &v
	}
	if p.Reason != nil {
		perm.Reason = *p.Reason
	}
	if len(p.Metadata) > 0 {
		if perm.Metadata == nil {
			perm.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			perm.Metadata[k] = cloneValue(v)
		}
	}
}
