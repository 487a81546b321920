package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semshift.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  path: apps/sales.qvf
output:
  dir: build
model:
  calendar: true
  calendar_start: 2021
  calendar_end: 2028
  parameters:
    - name: Discount Rate
      min: 0
      max: 0.5
      step: 0.05
      default: 0.1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Source.Path != "apps/sales.qvf" {
		t.Errorf("source path = %q", cfg.Source.Path)
	}
	if cfg.Output.Dir != "build" {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
	if cfg.Output.ProjectName != "sales" {
		t.Errorf("default project name = %q", cfg.Output.ProjectName)
	}
	if cfg.Model.Culture != "en-US" {
		t.Errorf("default culture = %q", cfg.Model.Culture)
	}
	if len(cfg.Model.Parameters) != 1 || cfg.Model.Parameters[0].Step != 0.05 {
		t.Errorf("parameters = %+v", cfg.Model.Parameters)
	}
	if cfg.Serve.Port != 8080 {
		t.Errorf("default port = %d", cfg.Serve.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\nsource:\n  path: sales.qvf\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestLoadMissingSourcePath(t *testing.T) {
	path := writeConfig(t, "version: 1\nsource:\n  type: qvf\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing source path")
	}
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  path: sales.qvf
  hostname: nope
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "hostname") {
		t.Errorf("error does not name the unknown key: %v", err)
	}
}

func TestResolveEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET", "mysecret")
	val, err := ResolveValue("${ENV:TEST_SECRET}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "mysecret" {
		t.Errorf("expected mysecret, got %s", val)
	}
}

func TestResolveEnvSecretUnset(t *testing.T) {
	if _, err := ResolveValue("${ENV:SEMSHIFT_TEST_UNSET_VAR}"); err == nil {
		t.Error("expected error for unset environment variable")
	}
}

func TestResolveVaultRefFormat(t *testing.T) {
	// A reference without #key is rejected before any Vault traffic.
	_, err := ResolveValue("${VAULT:secret/data/semshift}")
	if err == nil || !strings.Contains(err.Error(), "path#key") {
		t.Fatalf("expected path#key format error, got %v", err)
	}
}

func TestResolvePlainValue(t *testing.T) {
	val, err := ResolveValue("plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plaintext" {
		t.Errorf("expected plaintext, got %s", val)
	}
}

func TestEnrichDSNResolved(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@db/warehouse")
	path := writeConfig(t, `version: 1
source:
  path: sales.qvf
enrich:
  dsn: ${ENV:PG_DSN}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Enrich.DSN != "postgres://u:p@db/warehouse" {
		t.Errorf("dsn = %q", cfg.Enrich.DSN)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semshift.yaml")
	cfg := Default("apps/sales.qvf")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Source.Path != "apps/sales.qvf" || !got.Model.Calendar {
		t.Errorf("round trip = %+v", got)
	}
}
