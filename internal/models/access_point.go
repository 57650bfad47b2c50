package models

import "time"

// AccessPointType classifies the physical barrier an access point controls.
type AccessPointType string

const (
	AccessPointDoor      AccessPointType = "door"
	AccessPointGate      AccessPointType = "gate"
	AccessPointElevator  AccessPointType = "elevator"
	AccessPointTurnstile AccessPointType = "turnstile"
	AccessPointParking   AccessPointType = "parking"
	AccessPointRoom      AccessPointType = "room"
	AccessPointBuilding  AccessPointType = "building"
)

// AccessPointStatus reports the operational state of an access point.
type AccessPointStatus string

const (
	AccessPointActive      AccessPointStatus = "active"
	AccessPointInactive    AccessPointStatus = "inactive"
	AccessPointMaintenance AccessPointStatus = "maintenance"
	AccessPointOffline     AccessPointStatus = "offline"
)

// HardwareInfo describes the controller installed at an access point.
type HardwareInfo struct {
	DeviceID       string `json:"deviceId,omitempty" mapstructure:"device_id"`
	Model          string `json:"model,omitempty" mapstructure:"model"`
	Firmware       string `json:"firmware,omitempty" mapstructure:"firmware"`
	IPAddress      string `json:"ipAddress,omitempty" mapstructure:"ip_address"`
	ConnectionType string `json:"connectionType,omitempty" mapstructure:"connection_type"`
}

// AccessPointSettings carries device tuning knobs. They are stored and reported, not enforced.
type AccessPointSettings struct {
	AutoLockSeconds int  `json:"autoLockSeconds" mapstructure:"auto_lock_seconds" validate:"gte=0"`
	MaxAttempts     int  `json:"maxAttempts" mapstructure:"max_attempts" validate:"gte=0"`
	CooldownSeconds int  `json:"cooldownSeconds" mapstructure:"cooldown_seconds" validate:"gte=0"`
	AlarmOnForce    bool `json:"alarmOnForce" mapstructure:"alarm_on_force"`
}

// AccessPoint is a controllable entry such as a door or turnstile.
type AccessPoint struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Type      AccessPointType     `json:"type"`
	Location  string              `json:"location,omitempty"`
	Zone      string              `json:"zone,omitempty"`
	Enabled   bool                `json:"enabled"`
	Status    AccessPointStatus   `json:"status"`
	Hardware  HardwareInfo        `json:"hardware"`
	Settings  AccessPointSettings `json:"settings"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Available reports whether the point may currently admit anyone. Status is
// informational; only the Enabled switch gates access.
func (p AccessPoint) Available() bool {
	return p.Enabled
}

// AccessPointPatch lists the fields an update may change. Nil fields are left untouched.
type AccessPointPatch struct {
	Name     *string              `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Type     *AccessPointType     `json:"type,omitempty" validate:"omitempty,oneof=door gate elevator turnstile parking room building"`
	Location *string              `json:"location,omitempty"`
	Zone     *string              `json:"zone,omitempty"`
	Enabled  *bool                `json:"enabled,omitempty"`
	Status   *AccessPointStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive maintenance offline"`
	Hardware *HardwareInfo        `json:"hardware,omitempty"`
	Settings *AccessPointSettings `json:"settings,omitempty"`
}

// Apply merges the patch into point and reports whether anything was set.
func (p AccessPointPatch) Apply(point *AccessPoint) bool {
	changed := false
	if p.Name != nil {
		point.Name = *p.Name
		changed = true
	}
	if p.Type != nil {
		point.Type = *p.Type
		changed = true
	}
	if p.Location != nil {
		point.Location = *p.Location
		changed = true
	}
	if p.Zone != nil {
		point.Zone = *p.Zone
		changed = true
	}
	if p.Enabled != nil {
		point.Enabled = *p.Enabled
		changed = true
	}
	if p.Status != nil {
		point.Status = *p.Status
		changed = true
	}
	if p.Hardware != nil {
		point.Hardware = *p.Hardware
		changed = true
	}
	if p.Settings != nil {
		point.Settings = *p.Settings
		changed = true
	}
	return changed
}
