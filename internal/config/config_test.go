package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "devWalletPubkey: dev-key\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Bind != ":8080" || cfg.DataDir != "./data" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Fee.Mode != "bps" {
		t.Fatalf("expected default fee mode bps, got %q", cfg.Fee.Mode)
	}
	if cfg.DefaultRoomPrice != "10.00000000" || cfg.UsernameFee != "1.00000000" {
		t.Fatalf("unexpected fee defaults: %+v", cfg)
	}
}

func TestLoadRejectsMissingDevWallet(t *testing.T) {
	path := writeConfig(t, "bind: \":9000\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing devWalletPubkey to fail validation")
	}
}

func TestLoadRejectsInvalidFeeMode(t *testing.T) {
	path := writeConfig(t, "devWalletPubkey: dev-key\nfee:\n  mode: weird\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an invalid fee mode to fail validation")
	}
}

func TestLoadExpandsEnvWithDefault(t *testing.T) {
	path := writeConfig(t, "devWalletPubkey: \"${DEV_KEY:fallback-key}\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DevWalletPubkey != "fallback-key" {
		t.Fatalf("expected fallback env default, got %q", cfg.DevWalletPubkey)
	}
}

func TestLoadExpandsEnvFromEnvironment(t *testing.T) {
	t.Setenv("DEV_KEY", "from-env")
	path := writeConfig(t, "devWalletPubkey: \"${DEV_KEY:fallback-key}\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DevWalletPubkey != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.DevWalletPubkey)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error loading a nonexistent file")
	}
}
