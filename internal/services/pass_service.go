package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charlesng35/portcullis/internal/credentials"
	"github.com/charlesng35/portcullis/internal/passes"
	apperrors "github.com/charlesng35/portcullis/pkg/errors"
)

// PassIssuer signs QR access passes.
type PassIssuer interface {
	Issue(userID, accessPointID string) (passes.Pass, error)
}

// PassOption customises a PassService.
type PassOption func(*PassService)

// WithPassClock injects a custom clock, primarily for testing.
func WithPassClock(clock func() time.Time) PassOption {
	return func(s *PassService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PassService issues QR passes to users whose permission allows the qr_code method.
type PassService struct {
	points      AccessPointLookup
	permissions PermissionFinder
	issuer      PassIssuer
	now         func() time.Time
}

// NewPassService constructs a PassService.
func NewPassService(points AccessPointLookup, perms PermissionFinder, issuer PassIssuer, opts ...PassOption) (*PassService, error) {
	if points == nil {
		return nil, errors.New("pass service: access points are required")
	}
	if perms == nil {
		return nil, errors.New("pass service: permissions are required")
	}
	if issuer == nil {
		return nil, errors.New("pass service: issuer is required")
	}
	svc := &PassService{points: points, permissions: perms, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue returns a pass for userID at accessPointID. The point must exist and the user
// must hold an active permission there that lists qr_code.
func (s *PassService) Issue(ctx context.Context, userID, accessPointID string) (passes.Pass, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return passes.Pass{}, fmt.Errorf("pass service: issue: %w", err)
	}

	if _, ok := s.points.Get(accessPointID); !ok {
		return passes.Pass{}, apperrors.ErrAccessPointNotFound
	}
	perm, ok := s.permissions.FindActive(userID, accessPointID, s.now())
	if !ok {
		return passes.Pass{}, apperrors.ErrForbidden.WithMessage(ReasonNoPermission)
	}
	if !perm.AllowsMethod(credentials.MethodQRCode) {
		return passes.Pass{}, apperrors.ErrForbidden.WithMessage(ReasonMethodNotAllowed)
	}

	pass, err := s.issuer.Issue(userID, accessPointID)
	if err != nil {
		return passes.Pass{}, fmt.Errorf("pass service: issue: %w", err)
	}
	return pass, nil
}
