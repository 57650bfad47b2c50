package credentials

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
)

const (
	minQRCodeLength      = 10
	minRFIDLength        = 8
	minBiometricLength   = 32
	minFaceConfidence    = 0.8
	minPINLength         = 4
	maxPINLength         = 8
	otpauthScheme        = "otpauth://"
	compactJWTSeparators = 2
	jwtHeaderPrefix      = "eyJ" // base64url of `{"`
)

type qrPayload struct {
	Data string `mapstructure:"qrData"`
}

type rfidPayload struct {
	CardID string `mapstructure:"cardId"`
}

type fingerprintPayload struct {
	Template string `mapstructure:"template"`
}

type facePayload struct {
	Data       string   `mapstructure:"faceData"`
	Confidence *float64 `mapstructure:"confidence"`
}

type pinPayload struct {
	PIN string `mapstructure:"pin"`
}

type otpPayload struct {
	Code string `mapstructure:"code"`
}

type qrValidator struct {
	now    func() time.Time
	verify func(token string) error
}

func (qrValidator) Method() string { return MethodQRCode }

// Validate accepts opaque QR strings of sufficient length. Strings that look like a
// signed pass (compact JWT) must be well formed and unexpired; otpauth URIs must parse.
// Signatures are checked only when a pass verifier is configured.
func (v qrValidator) Validate(payload map[string]any) Result {
	var p qrPayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonInvalidQRCode)
	}
	data := strings.TrimSpace(p.Data)
	if utf8.RuneCountInString(data) < minQRCodeLength {
		return Reject(ReasonInvalidQRCode)
	}

	switch {
	case strings.HasPrefix(data, otpauthScheme):
		if _, err := otp.NewKeyFromURL(data); err != nil {
			return Reject(ReasonInvalidQRCode)
		}
	case strings.HasPrefix(data, jwtHeaderPrefix) && strings.Count(data, ".") == compactJWTSeparators && v.verify != nil:
		if err := v.verify(data); err != nil {
			return Reject(ReasonInvalidQRCode)
		}
	case strings.HasPrefix(data, jwtHeaderPrefix) && strings.Count(data, ".") == compactJWTSeparators:
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(data, claims); err != nil {
			return Reject(ReasonInvalidQRCode)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return Reject(ReasonInvalidQRCode)
		}
		if exp != nil && !exp.After(v.now()) {
			return Reject(ReasonInvalidQRCode)
		}
	}
	return Accept()
}

func validateRFID(payload map[string]any) Result {
	var p rfidPayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonInvalidRFID)
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.CardID)) < minRFIDLength {
		return Reject(ReasonInvalidRFID)
	}
	return Accept()
}

func validateFingerprint(payload map[string]any) Result {
	var p fingerprintPayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonInvalidFingerprint)
	}
	if len(strings.TrimSpace(p.Template)) < minBiometricLength {
		return Reject(ReasonInvalidFingerprint)
	}
	return Accept()
}

func validateFace(payload map[string]any) Result {
	var p facePayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonFaceNotRecognized)
	}
	if len(strings.TrimSpace(p.Data)) < minBiometricLength {
		return Reject(ReasonFaceNotRecognized)
	}
	if p.Confidence != nil {
		c := *p.Confidence
		if c < minFaceConfidence || c > 1 {
			return Reject(ReasonFaceNotRecognized)
		}
	}
	return Accept()
}

func validatePIN(payload map[string]any) Result {
	var p pinPayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonInvalidPIN)
	}
	if n := len(p.PIN); n < minPINLength || n > maxPINLength || !allDigits(p.PIN) {
		return Reject(ReasonInvalidPIN)
	}
	return Accept()
}

func validateOTP(payload map[string]any) Result {
	var p otpPayload
	if err := decodePayload(payload, &p); err != nil {
		return Reject(ReasonInvalidOTP)
	}
	n := len(p.Code)
	if n != otp.DigitsSix.Length() && n != otp.DigitsEight.Length() {
		return Reject(ReasonInvalidOTP)
	}
	if !allDigits(p.Code) {
		return Reject(ReasonInvalidOTP)
	}
	return Accept()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
