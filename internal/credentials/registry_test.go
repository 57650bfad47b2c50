package credentials

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryRegistersBuiltins(t *testing.T) {
	r := NewDefaultRegistry()
	require.ElementsMatch(t, BuiltinMethods, r.Methods())
	for _, method := range BuiltinMethods {
		require.True(t, r.Supports(method), method)
	}
}

func TestRegisterRejectsInvalidValidators(t *testing.T) {
	r := NewRegistry()
	require.ErrorIs(t, r.Register(nil), ErrNilValidator)
	require.ErrorIs(t, r.Register(NewValidator("  ", nil)), ErrEmptyMethod)

	require.NoError(t, r.Register(NewValidator("badge", func(map[string]any) Result { return Accept() })))
	require.ErrorIs(t, r.Register(NewValidator("badge", nil)), ErrDuplicateMethod)
	require.Panics(t, func() { r.MustRegister(NewValidator("badge", nil)) })
}

func TestUnknownMethodIsRejected(t *testing.T) {
	r := NewDefaultRegistry()
	res := r.Validate("retina", map[string]any{"scan": "x"})
	require.False(t, res.OK)
	require.Equal(t, ReasonUnknownMethod, res.Reason)
}

func TestBuiltinValidators(t *testing.T) {
	longBlob := strings.Repeat("a", 32)
	shortBlob := strings.Repeat("a", 31)

	cases := []struct {
		name    string
		method  string
		payload map[string]any
		reason  string
	}{
		{"rfid ok", MethodRFID, map[string]any{"cardId": "12345678"}, ""},
		{"rfid numeric", MethodRFID, map[string]any{"cardId": 12345678}, ""},
		{"rfid short", MethodRFID, map[string]any{"cardId": "123"}, ReasonInvalidRFID},
		{"rfid missing", MethodRFID, nil, ReasonInvalidRFID},
		{"qr ok", MethodQRCode, map[string]any{"qrData": "ACCESS-0001"}, ""},
		{"qr short", MethodQRCode, map[string]any{"qrData": "short"}, ReasonInvalidQRCode},
		{"qr bad otpauth", MethodQRCode, map[string]any{"qrData": "otpauth://%zz"}, ReasonInvalidQRCode},
		{"fingerprint ok", MethodFingerprint, map[string]any{"template": longBlob}, ""},
		{"fingerprint short", MethodFingerprint, map[string]any{"template": shortBlob}, ReasonInvalidFingerprint},
		{"face ok", MethodFaceRecognition, map[string]any{"faceData": longBlob}, ""},
		{"face confident", MethodFaceRecognition, map[string]any{"faceData": longBlob, "confidence": 0.8}, ""},
		{"face unsure", MethodFaceRecognition, map[string]any{"faceData": longBlob, "confidence": 0.79}, ReasonFaceNotRecognized},
		{"face out of range", MethodFaceRecognition, map[string]any{"faceData": longBlob, "confidence": 1.5}, ReasonFaceNotRecognized},
		{"face short", MethodFaceRecognition, map[string]any{"faceData": shortBlob}, ReasonFaceNotRecognized},
		{"pin ok", MethodPIN, map[string]any{"pin": "1234"}, ""},
		{"pin eight", MethodPIN, map[string]any{"pin": "12345678"}, ""},
		{"pin short", MethodPIN, map[string]any{"pin": "123"}, ReasonInvalidPIN},
		{"pin long", MethodPIN, map[string]any{"pin": "123456789"}, ReasonInvalidPIN},
		{"pin letters", MethodPIN, map[string]any{"pin": "12ab"}, ReasonInvalidPIN},
		{"otp six", MethodOTP, map[string]any{"code": "123456"}, ""},
		{"otp eight", MethodOTP, map[string]any{"code": "12345678"}, ""},
		{"otp seven", MethodOTP, map[string]any{"code": "1234567"}, ReasonInvalidOTP},
		{"otp letters", MethodOTP, map[string]any{"code": "12345a"}, ReasonInvalidOTP},
	}

	r := NewDefaultRegistry()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Validate(tc.method, tc.payload)
			if tc.reason == "" {
				require.True(t, res.OK, "unexpected rejection: %s", res.Reason)
				return
			}
			require.False(t, res.OK)
			require.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestQRCodePassExpiry(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	r := NewDefaultRegistry(WithClock(func() time.Time { return now }))

	sign := func(exp time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-1",
			"exp": exp.Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		return token
	}

	require.True(t, r.Validate(MethodQRCode, map[string]any{"qrData": sign(now.Add(time.Minute))}).OK)

	res := r.Validate(MethodQRCode, map[string]any{"qrData": sign(now.Add(-time.Minute))})
	require.False(t, res.OK)
	require.Equal(t, ReasonInvalidQRCode, res.Reason)

	res = r.Validate(MethodQRCode, map[string]any{"qrData": "eyJhbGciOi.broken.token"})
	require.False(t, res.OK)
}

func TestQRCodePassVerifier(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	sign := func(secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-1",
			"exp": now.Add(time.Minute).Unix(),
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	trusted := sign("trusted")

	r := NewDefaultRegistry(
		WithClock(func() time.Time { return now }),
		WithPassVerifier(func(token string) error {
			if token != trusted {
				return errors.New("bad signature")
			}
			return nil
		}),
	)

	require.True(t, r.Validate(MethodQRCode, map[string]any{"qrData": trusted}).OK)

	res := r.Validate(MethodQRCode, map[string]any{"qrData": sign("forged")})
	require.False(t, res.OK)
	require.Equal(t, ReasonInvalidQRCode, res.Reason)

	// Plain QR strings never reach the verifier.
	require.True(t, r.Validate(MethodQRCode, map[string]any{"qrData": "ACCESS-0001"}).OK)
}

func TestQRCodeAcceptsOTPAuthURI(t *testing.T) {
	r := NewDefaultRegistry()
	uri := "otpauth://totp/Portcullis:alice?secret=JBSWY3DPEHPK3PXP&issuer=Portcullis"
	require.True(t, r.Validate(MethodQRCode, map[string]any{"qrData": uri}).OK)
}
