package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charlesng35/portcullis/internal/audit"
)

const passSecretBytes = 32

// ApplyRuntimeDefaults fills values the server cannot run without, even when no configuration
// file is supplied. It returns a map describing which keys were generated so callers can log the
// event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if cfg.Passes.Enabled && strings.TrimSpace(cfg.Passes.Secret) == "" {
		secret, err := generateHexKey(passSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate pass secret: %w", err)
		}
		cfg.Passes.Secret = secret
		generated["passes.secret"] = true
	}

	if cfg.Engine.AuditCapacity <= 0 {
		cfg.Engine.AuditCapacity = audit.DefaultCapacity
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
