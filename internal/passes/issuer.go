package passes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	defaultIssuer = "Portcullis"
	defaultTTL    = 5 * time.Minute
	defaultQRSize = 256
	minSecretLen  = 16
)

var (
	// ErrInvalidPass is returned when a pass token fails verification.
	ErrInvalidPass = errors.New("passes: invalid pass")
)

// Config holds the signing parameters for access passes.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	QRSize int
}

// Claims are the JWT claims carried by a pass. Subject is the user id.
type Claims struct {
	AccessPointID string `json:"ap"`
	jwt.RegisteredClaims
}

// Pass is a signed token plus its QR rendering.
type Pass struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	PNG       []byte    `json:"-"`
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(i *Issuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// Issuer signs short-lived QR access passes.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	size   int
	now    func() time.Time
}

// NewIssuer validates cfg and constructs an Issuer.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("passes: secret must be at least %d characters", minSecretLen)
	}

	i := &Issuer{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultTTL,
		size:   defaultQRSize,
		now:    time.Now,
	}
	if v := strings.TrimSpace(cfg.Issuer); v != "" {
		i.issuer = v
	}
	if cfg.TTL > 0 {
		i.ttl = cfg.TTL
	}
	if cfg.QRSize > 0 {
		i.size = cfg.QRSize
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a pass for userID at accessPointID and renders it as a PNG QR code.
func (i *Issuer) Issue(userID, accessPointID string) (Pass, error) {
	userID = strings.TrimSpace(userID)
	accessPointID = strings.TrimSpace(accessPointID)
	if userID == "" || accessPointID == "" {
		return Pass{}, errors.New("passes: user id and access point id are required")
	}

	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		AccessPointID: accessPointID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Pass{}, fmt.Errorf("passes: sign token: %w", err)
	}

	png, err := qrcode.Encode(token, qrcode.Medium, i.size)
	if err != nil {
		return Pass{}, fmt.Errorf("passes: render qr code: %w", err)
	}

	return Pass{Token: token, ExpiresAt: expires.UTC(), PNG: png}, nil
}

// Verify checks the signature, issuer and expiry of token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.AccessPointID == "" {
		return nil, ErrInvalidPass
	}
	return claims, nil
}
