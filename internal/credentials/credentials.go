package credentials

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Access method identifiers understood by the built-in validators.
const (
	MethodQRCode          = "qr_code"
	MethodRFID            = "rfid"
	MethodFingerprint     = "fingerprint"
	MethodFaceRecognition = "face_recognition"
	MethodPIN             = "pin"
	MethodOTP             = "otp"
)

// Rejection reasons returned to callers and recorded in the audit log.
const (
	ReasonInvalidQRCode      = "Invalid QR code"
	ReasonInvalidRFID        = "Invalid RFID card"
	ReasonInvalidFingerprint = "Invalid fingerprint data"
	ReasonFaceNotRecognized  = "Face not recognized"
	ReasonInvalidPIN         = "Invalid PIN"
	ReasonInvalidOTP         = "Invalid OTP code"
	ReasonUnknownMethod      = "Unknown access method"
)

// BuiltinMethods lists the methods registered by NewDefaultRegistry, in display order.
var BuiltinMethods = []string{
	MethodQRCode,
	MethodRFID,
	MethodFingerprint,
	MethodFaceRecognition,
	MethodPIN,
	MethodOTP,
}

// Result is the outcome of checking one credential payload.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Accept returns a passing result.
func Accept() Result {
	return Result{OK: true}
}

// Reject returns a failing result carrying reason.
func Reject(reason string) Result {
	return Result{Reason: reason}
}

// Validator checks the credential payload for a single access method. Implementations
// must be side-effect free and safe for concurrent use.
type Validator interface {
	Method() string
	Validate(payload map[string]any) Result
}

type funcValidator struct {
	method string
	fn     func(map[string]any) Result
}

// NewValidator adapts a plain function into a Validator for method.
func NewValidator(method string, fn func(payload map[string]any) Result) Validator {
	return funcValidator{method: strings.TrimSpace(method), fn: fn}
}

func (v funcValidator) Method() string { return v.method }

func (v funcValidator) Validate(payload map[string]any) Result {
	if v.fn == nil {
		return Reject(ReasonUnknownMethod)
	}
	return v.fn(payload)
}

// decodePayload copies the loosely typed payload into out. Numbers sent for string
// fields (e.g. a numeric card id) are converted.
func decodePayload(payload map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}
