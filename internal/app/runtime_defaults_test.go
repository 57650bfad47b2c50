package app

import (
	"strings"
	"testing"
)

func TestApplyRuntimeDefaultsGeneratesPassSecret(t *testing.T) {
	cfg := &Config{}
	cfg.Passes.Enabled = true

	generated, err := ApplyRuntimeDefaults(cfg)
	if err != nil {
		t.Fatalf("ApplyRuntimeDefaults returned error: %v", err)
	}

	if len(cfg.Passes.Secret) != passSecretBytes*2 {
		t.Fatalf("expected hex secret of %d chars, got %q", passSecretBytes*2, cfg.Passes.Secret)
	}
	if !generated["passes.secret"] {
		t.Fatalf("expected generated map to include pass secret: %#v", generated)
	}
	if cfg.Engine.AuditCapacity != 10000 {
		t.Fatalf("expected default audit capacity, got %d", cfg.Engine.AuditCapacity)
	}
}

func TestApplyRuntimeDefaultsSkipsDisabledPasses(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	if err != nil {
		t.Fatalf("ApplyRuntimeDefaults returned error: %v", err)
	}
	if cfg.Passes.Secret != "" || len(generated) != 0 {
		t.Fatalf("did not expect a secret for disabled passes: %#v", generated)
	}
}

func TestApplyRuntimeDefaultsPreservesExistingSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Passes.Enabled = true
	cfg.Passes.Secret = strings.Repeat("a", 20)
	cfg.Engine.AuditCapacity = 50

	generated, err := ApplyRuntimeDefaults(cfg)
	if err != nil {
		t.Fatalf("ApplyRuntimeDefaults returned error: %v", err)
	}

	if len(generated) != 0 {
		t.Fatalf("expected no keys generated, got %#v", generated)
	}
	if cfg.Engine.AuditCapacity != 50 {
		t.Fatalf("expected capacity to be preserved, got %d", cfg.Engine.AuditCapacity)
	}
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	if err == nil || !strings.Contains(err.Error(), "config is nil") {
		t.Fatalf("expected nil config error, got %v", err)
	}
}

func TestGenerateHexKey(t *testing.T) {
	key, err := generateHexKey(4)
	if err != nil {
		t.Fatalf("generateHexKey returned error: %v", err)
	}
	if len(key) != 8 {
		t.Fatalf("expected encoded length 8, got %d", len(key))
	}

	if _, err = generateHexKey(0); err == nil {
		t.Fatal("expected error when length <= 0")
	}
}
