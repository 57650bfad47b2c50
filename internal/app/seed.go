package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/portcullis/internal/models"
	"github.com/charlesng35/portcullis/pkg/validator"
)

// SeedConfig lists access points and permissions created at boot.
type SeedConfig struct {
	AccessPoints []SeedAccessPoint `mapstructure:"access_points"`
	Permissions  []SeedPermission  `mapstructure:"permissions"`
}

// SeedAccessPoint is the configuration shape of an access point.
type SeedAccessPoint struct {
	ID       string                     `mapstructure:"id"`
	Name     string                     `mapstructure:"name" validate:"required"`
	Type     string                     `mapstructure:"type" validate:"required,oneof=door gate elevator turnstile parking room building"`
	Location string                     `mapstructure:"location"`
	Zone     string                     `mapstructure:"zone"`
	Enabled  *bool                      `mapstructure:"enabled"`
	Status   string                     `mapstructure:"status" validate:"omitempty,oneof=active inactive maintenance offline"`
	Hardware models.HardwareInfo        `mapstructure:"hardware"`
	Settings models.AccessPointSettings `mapstructure:"settings"`
}

// Model converts the seed entry into a domain access point. Points are enabled unless
// the entry says otherwise.
func (s SeedAccessPoint) Model() models.AccessPoint {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	return models.AccessPoint{
		ID:       strings.TrimSpace(s.ID),
		Name:     strings.TrimSpace(s.Name),
		Type:     models.AccessPointType(s.Type),
		Location: s.Location,
		Zone:     s.Zone,
		Enabled:  enabled,
		Status:   models.AccessPointStatus(s.Status),
		Hardware: s.Hardware,
		Settings: s.Settings,
	}
}

// SeedPermission is the configuration shape of a permission grant.
type SeedPermission struct {
	UserID        string          `mapstructure:"user_id" validate:"required"`
	UserName      string          `mapstructure:"user_name"`
	AccessPointID string          `mapstructure:"access_point_id" validate:"required"`
	AccessMethods []string        `mapstructure:"access_methods" validate:"required,min=1,dive,oneof=qr_code rfid fingerprint face_recognition pin otp"`
	Schedule      models.Schedule `mapstructure:"schedule"`
	ValidTo       *time.Time      `mapstructure:"valid_to"`
	Reason        string          `mapstructure:"reason"`
}

// Model converts the seed entry into a permission ready to be granted.
func (s SeedPermission) Model() models.Permission {
	perm := models.Permission{
		UserID:        strings.TrimSpace(s.UserID),
		UserName:      s.UserName,
		AccessPointID: strings.TrimSpace(s.AccessPointID),
		AccessMethods: append([]string(nil), s.AccessMethods...),
		Schedule:      s.Schedule.Clone(),
		Reason:        s.Reason,
	}
	if s.ValidTo != nil {
		validTo := s.ValidTo.UTC()
		perm.ValidTo = &validTo
	}
	return perm
}

// PointCreator stores access points.
type PointCreator interface {
	Create(ctx context.Context, point models.AccessPoint) models.AccessPoint
	Get(id string) (models.AccessPoint, bool)
}

// PermissionGranter stores permission grants.
type PermissionGranter interface {
	Grant(ctx context.Context, perm models.Permission) models.Permission
}

// SeedResult counts what Seed created.
type SeedResult struct {
	AccessPoints int
	Permissions  int
}

// Seed validates every entry first and then creates points followed by permissions.
// A permission referencing an unknown access point aborts seeding before any grant.
func Seed(ctx context.Context, seed SeedConfig, points PointCreator, perms PermissionGranter) (SeedResult, error) {
	var result SeedResult
	if points == nil || perms == nil {
		return result, fmt.Errorf("seed: stores are required")
	}

	for i, entry := range seed.AccessPoints {
		if err := validator.ValidateStruct(entry); err != nil {
			return result, fmt.Errorf("seed: access point %d: %w", i, err)
		}
	}
	for i, entry := range seed.Permissions {
		if err := validator.ValidateStruct(entry); err != nil {
			return result, fmt.Errorf("seed: permission %d: %w", i, err)
		}
	}

	declared := make(map[string]struct{}, len(seed.AccessPoints))
	for _, entry := range seed.AccessPoints {
		if id := strings.TrimSpace(entry.ID); id != "" {
			declared[id] = struct{}{}
		}
	}
	for i, entry := range seed.Permissions {
		id := strings.TrimSpace(entry.AccessPointID)
		if _, ok := declared[id]; ok {
			continue
		}
		if _, ok := points.Get(id); !ok {
			return result, fmt.Errorf("seed: permission %d: unknown access point %q", i, id)
		}
	}

	for _, entry := range seed.AccessPoints {
		points.Create(ctx, entry.Model())
		result.AccessPoints++
	}
	for _, entry := range seed.Permissions {
		perms.Grant(ctx, entry.Model())
		result.Permissions++
	}
	return result, nil
}
