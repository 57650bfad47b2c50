package credentials

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNilValidator signals an attempt to register a nil validator.
	ErrNilValidator = errors.New("credentials: nil validator")
	// ErrEmptyMethod indicates a validator with no method name.
	ErrEmptyMethod = errors.New("credentials: method is required")
	// ErrDuplicateMethod indicates a method already has a validator.
	ErrDuplicateMethod = errors.New("credentials: method already registered")
)

// Option customises a registry built by NewDefaultRegistry.
type Option func(*options)

type options struct {
	now        func() time.Time
	verifyPass func(token string) error
}

// WithClock overrides the clock used for pass expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithPassVerifier makes the QR validator check signed passes with verify instead of only
// reading their expiry.
func WithPassVerifier(verify func(token string) error) Option {
	return func(o *options) {
		o.verifyPass = verify
	}
}

// Registry dispatches credential payloads to the validator registered for their method.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// NewDefaultRegistry returns a registry preloaded with the six built-in methods.
func NewDefaultRegistry(opts ...Option) *Registry {
	cfg := options{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := NewRegistry()
	r.MustRegister(qrValidator{now: cfg.now, verify: cfg.verifyPass})
	r.MustRegister(NewValidator(MethodRFID, validateRFID))
	r.MustRegister(NewValidator(MethodFingerprint, validateFingerprint))
	r.MustRegister(NewValidator(MethodFaceRecognition, validateFace))
	r.MustRegister(NewValidator(MethodPIN, validatePIN))
	r.MustRegister(NewValidator(MethodOTP, validateOTP))
	return r
}

// Register adds a validator keyed by its method.
func (r *Registry) Register(v Validator) error {
	if v == nil {
		return ErrNilValidator
	}
	method := strings.TrimSpace(v.Method())
	if method == "" {
		return ErrEmptyMethod
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[method]; exists {
		return ErrDuplicateMethod
	}
	r.validators[method] = v
	return nil
}

// MustRegister wraps Register and panics on error. Intended for boot-time wiring.
func (r *Registry) MustRegister(v Validator) {
	if err := r.Register(v); err != nil {
		panic(err)
	}
}

// Get returns the validator for method when present.
func (r *Registry) Get(method string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[method]
	return v, ok
}

// Supports reports whether method has a registered validator.
func (r *Registry) Supports(method string) bool {
	_, ok := r.Get(method)
	return ok
}

// Methods returns the registered method names sorted alphabetically.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.validators))
	for method := range r.validators {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// Validate checks payload with the validator for method. Unknown methods are rejected.
func (r *Registry) Validate(method string, payload map[string]any) Result {
	v, ok := r.Get(method)
	if !ok {
		return Reject(ReasonUnknownMethod)
	}
	return v.Validate(payload)
}
