package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mindmorass/clipdeck/internal/backend"
)

func stubKeychain(t *testing.T, value string, err error) {
	t.Helper()
	orig := keychainLookup
	keychainLookup = func() ([]byte, error) { return []byte(value), err }
	t.Cleanup(func() { keychainLookup = orig })
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider != "gemini" || cfg.ListenAddr != "127.0.0.1:7777" || cfg.BackendType != "local" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.CaptureInterval != 250*time.Millisecond {
		t.Fatalf("unexpected durations %v %v", cfg.RequestTimeout, cfg.CaptureInterval)
	}
	if !cfg.CaptureEnabled || cfg.AutoEnrich || cfg.HistoryLimit != 1000 {
		t.Fatalf("unexpected capture defaults %+v", cfg)
	}
	if cfg.DatabasePath != filepath.Join(dir, "history.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.WebUIURL() != "http://127.0.0.1:7777" {
		t.Fatalf("unexpected web url %q", cfg.WebUIURL())
	}
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv("CLIPDECK_LOG_LEVEL", "debug")
	dir := t.TempDir()
	yaml := `provider: openai
model: gpt-4o
request_timeout: 5s
capture_interval: 1s
history_limit: 50
backend_type: s3
s3_bucket: clips
s3_prefix: team
api_key: from-file
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o" || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.CaptureInterval != time.Second {
		t.Fatalf("unexpected durations %v %v", cfg.RequestTimeout, cfg.CaptureInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("env override not applied: %q", cfg.LogLevel)
	}

	bc := cfg.BackendConfig()
	if bc.Type != backend.BackendS3 || bc.S3Bucket != "clips" || bc.S3Prefix != "team" {
		t.Fatalf("unexpected backend config %+v", bc)
	}
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("provider: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestSaveConfigRoundTripOmitsCredential(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.SharedLocation = filepath.Join(dir, "backups")
	cfg.APIKey = "sk-test-7f3a"
	cfg.AutoEnrich = true
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(raw), "sk-test-7f3a") || strings.Contains(string(raw), "api_key:") {
		t.Fatalf("credential written to config: %s", raw)
	}

	reloaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if reloaded.SharedLocation != cfg.SharedLocation || !reloaded.AutoEnrich || reloaded.APIKey != "" {
		t.Fatalf("unexpected reloaded config %+v", reloaded)
	}
	if reloaded.RequestTimeout != cfg.RequestTimeout {
		t.Fatalf("timeout changed: %v", reloaded.RequestTimeout)
	}
}

func TestResolveAPIKeyOrder(t *testing.T) {
	stubKeychain(t, "from-keychain", nil)

	t.Setenv(EnvAPIKey, "from-env")
	if key, src := ResolveAPIKey(&Config{APIKey: "from-config"}); key != "from-env" || src != "env" {
		t.Fatalf("expected env key, got %q (%s)", key, src)
	}

	t.Setenv(EnvAPIKey, "")
	if key, src := ResolveAPIKey(&Config{APIKey: "from-config"}); key != "from-config" || src != "config" {
		t.Fatalf("expected config key, got %q (%s)", key, src)
	}
	if key, src := ResolveAPIKey(&Config{}); key != "from-keychain" || src != "keychain" {
		t.Fatalf("expected keychain key, got %q (%s)", key, src)
	}
}

func TestResolveAPIKeyAbsent(t *testing.T) {
	stubKeychain(t, "", errors.New("unsupported"))
	t.Setenv(EnvAPIKey, "")

	if key, src := ResolveAPIKey(&Config{}); key != "" || src != "" {
		t.Fatalf("expected no key, got %q (%s)", key, src)
	}
}
