package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	raw := `
ListenAddress = ":9000"
DataDir = "/tmp/dmc"
Environment = "staging"
AdminAddress = "0x00000000000000000000000000000000000000aa"
RecoveryAddress = "0x00000000000000000000000000000000000000bb"
PriceWindowSeconds = 3600

[AuthTokens]
"secret-token" = "0x0000000000000000000000000000000000000001"

[Params]
bmrate = 250
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" {
		t.Fatalf("listen = %q, want :9000", cfg.ListenAddress)
	}
	admin, err := cfg.Admin()
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if admin[19] != 0xAA {
		t.Fatalf("admin = %s", admin)
	}
	if got := cfg.Params["bmrate"]; got != 250 {
		t.Fatalf("bmrate override = %d, want 250", got)
	}
	if got := cfg.AuthTokens["secret-token"]; got != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("token principal = %q", got)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Fatalf("listen = %q, want default :8080", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestNormaliseRejectsBadAddresses(t *testing.T) {
	cfg := &Config{AdminAddress: "not-an-address", RecoveryAddress: zeroAddressHex}
	if err := cfg.Normalise(); err == nil {
		t.Fatalf("expected invalid admin address to be rejected")
	}
}

func TestNormaliseRejectsBadTokenPrincipal(t *testing.T) {
	cfg := &Config{
		AdminAddress:    zeroAddressHex,
		RecoveryAddress: zeroAddressHex,
		AuthTokens:      map[string]string{"token": "bogus"},
	}
	if err := cfg.Normalise(); err == nil {
		t.Fatalf("expected invalid token principal to be rejected")
	}
}
